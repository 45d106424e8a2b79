package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/typetag"
)

func numericTable(t *testing.T, vals ...int64) *Table {
	t.Helper()
	tab := New(typetag.I64, typetag.I64, len(vals))
	for _, v := range vals {
		tab.Head.(*column.Numeric[int64]).Append(v)
		tab.Tail.(*column.Numeric[int64]).Append(v * 10)
	}
	tab.Count = len(vals)
	return tab
}

func TestSliceIsZeroCopyView(t *testing.T) {
	tab := numericTable(t, 1, 2, 3, 4)
	view := tab.Slice(1, 3)
	require.Equal(t, 2, view.Len())
	require.Equal(t, int64(2), view.Head.(*column.Numeric[int64]).At(0))
	require.Equal(t, int64(3), view.Head.(*column.Numeric[int64]).At(1))
	require.Equal(t, 1, view.First)
}

func TestMirrorSwapsHeadAndTail(t *testing.T) {
	tab := numericTable(t, 1, 2)
	tab.HeadFlags = Flags{Sorted: true}
	tab.TailFlags = Flags{Key: true}

	m := tab.Mirror()
	require.Same(t, tab.Tail, m.Head)
	require.Same(t, tab.Head, m.Tail)
	require.Equal(t, tab.TailFlags, m.HeadFlags)
	require.Equal(t, tab.HeadFlags, m.TailFlags)
}

func TestGuardReleasesUnlessCommitted(t *testing.T) {
	tab := numericTable(t, 1)
	g := NewGuard(tab)
	g.Release()
	require.True(t, tab.Released())
}

func TestGuardCommitSurvivesRelease(t *testing.T) {
	tab := numericTable(t, 1)
	g := NewGuard(tab)
	committed := g.Commit()
	g.Release()
	require.False(t, committed.Released())
}

func TestGuardReleaseIsIdempotentAndNilSafe(t *testing.T) {
	var g *Guard
	require.NotPanics(t, func() { g.Release() })

	tab := numericTable(t, 1)
	g = NewGuard(tab)
	g.Release()
	g.Release()
	require.True(t, tab.Released())
}

func TestBuildHashIsIdempotentAndLooksUpMatches(t *testing.T) {
	tab := numericTable(t, 5, 6, 5, 7)
	require.False(t, tab.HasHash(Head))
	require.NoError(t, tab.BuildHash(Head))
	require.True(t, tab.HasHash(Head))
	require.NoError(t, tab.BuildHash(Head))

	h := tab.Keyed(Head).HashAt(0)
	positions := tab.HashLookup(h)
	require.Contains(t, positions, 0)
	require.Contains(t, positions, 2)
}

func TestLockTracerCountsTrace(t *testing.T) {
	tab := numericTable(t, 1, 2)
	tracer := NewCountingTracer()
	tab.SetLockTracer(tracer)
	require.NoError(t, tab.BuildHash(Head))
	require.Equal(t, 1, tracer.Count("hash-build"))
}
