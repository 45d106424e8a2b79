package multijoin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/engineopts"
	"github.com/colbat/batjoin/join"
	"github.com/colbat/batjoin/memtable"
	"github.com/colbat/batjoin/rowid"
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

func testEnv(t *testing.T) *join.Env {
	t.Helper()
	return &join.Env{
		Ctx: context.Background(),
		Svc: memtable.New(1),
		Cfg: engineopts.Default(),
	}
}

func i64Table(t *testing.T, heads []int64) *table.Table {
	t.Helper()
	tab := table.New(typetag.I64, typetag.I64, len(heads))
	h := tab.Head.(*column.Numeric[int64])
	tl := tab.Tail.(*column.Numeric[int64])
	for _, v := range heads {
		h.Append(v)
		tl.Append(v)
	}
	tab.Count = len(heads)
	return tab
}

func denseTable(t *testing.T, seqbase uint64, n int) *table.Table {
	t.Helper()
	head := &column.Void{Seqbase: rowid.ID(seqbase), Count: n}
	tl := column.New(typetag.I64, n).(*column.Numeric[int64])
	for i := 0; i < n; i++ {
		tl.Append(int64(i))
	}
	tab := table.NewFrom(head, tl)
	tab.HeadFlags = table.Flags{Sorted: true, RevSorted: true, Key: true, Dense: true, Nonil: true}
	return tab
}

func TestDriveLeadIsSmallestColumn(t *testing.T) {
	env := testEnv(t)
	cols := []*table.Table{
		i64Table(t, []int64{1, 2, 3, 4}),
		i64Table(t, []int64{1}),
		i64Table(t, []int64{1, 2, 3}),
	}
	res, err := Drive(env, cols, -1, func(int, int) {}, func([]int) {})
	require.NoError(t, err)
	require.Equal(t, 1, res.LeadIndex)
}

func TestDriveOrderByIndexOverridesSizeOrder(t *testing.T) {
	env := testEnv(t)
	// Column 0 is by far the largest; without an override the smallest
	// column (1, len 1) would lead instead, per TestDriveLeadIsSmallestColumn.
	cols := []*table.Table{
		i64Table(t, []int64{1, 2, 3, 4}),
		i64Table(t, []int64{1}),
		i64Table(t, []int64{1, 2, 3}),
	}
	res, err := Drive(env, cols, 0, func(int, int) {}, func([]int) {})
	require.NoError(t, err)
	require.Equal(t, 0, res.LeadIndex)
}

func TestDriveAbortsOnNoMatch(t *testing.T) {
	env := testEnv(t)
	cols := []*table.Table{
		i64Table(t, []int64{1, 2}),
		i64Table(t, []int64{1, 99}),
	}
	var tuples [][]int
	_, err := Drive(env, cols, -1, func(int, int) {}, func(p []int) {
		cp := append([]int(nil), p...)
		tuples = append(tuples, cp)
	})
	require.NoError(t, err)
	require.Len(t, tuples, 1)
}

func TestDriveCartesianProductOnDuplicates(t *testing.T) {
	env := testEnv(t)
	cols := []*table.Table{
		i64Table(t, []int64{5}),
		i64Table(t, []int64{5, 5, 5}),
	}
	var count int
	_, err := Drive(env, cols, -1, func(int, int) {}, func(p []int) {
		count++
	})
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestDriveAllKeyFalseWhenAnyColumnNotKey(t *testing.T) {
	env := testEnv(t)
	a := i64Table(t, []int64{1, 2})
	a.HeadFlags.Key = true
	b := i64Table(t, []int64{1, 2, 1})
	b.HeadFlags.Key = false

	res, err := Drive(env, []*table.Table{a, b}, -1, func(int, int) {}, func([]int) {})
	require.NoError(t, err)
	require.False(t, res.AllKey)
}

func TestDriveSyncedDenseColumns(t *testing.T) {
	env := testEnv(t)
	a := denseTable(t, 0, 4)
	b := denseTable(t, 0, 4)

	var count int
	_, err := Drive(env, []*table.Table{a, b}, -1, func(int, int) {}, func([]int) { count++ })
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestDriveSortedBinaryProbe(t *testing.T) {
	env := testEnv(t)
	lead := i64Table(t, []int64{3, 1, 2})
	sortedOther := i64Table(t, []int64{1, 2, 3})
	sortedOther.HeadFlags.Sorted = true

	var tuples [][]int
	_, err := Drive(env, []*table.Table{lead, sortedOther}, -1, func(int, int) {}, func(p []int) {
		cp := append([]int(nil), p...)
		tuples = append(tuples, cp)
	})
	require.NoError(t, err)
	require.Len(t, tuples, 3)
}

func TestDriveSortedMergeProbeWhenBothSorted(t *testing.T) {
	env := testEnv(t)
	lead := i64Table(t, []int64{1, 2, 3})
	lead.HeadFlags.Sorted = true
	other := i64Table(t, []int64{1, 2, 3})
	other.HeadFlags.Sorted = true

	var tuples [][]int
	_, err := Drive(env, []*table.Table{lead, other}, -1, func(int, int) {}, func(p []int) {
		cp := append([]int(nil), p...)
		tuples = append(tuples, cp)
	})
	require.NoError(t, err)
	require.Len(t, tuples, 3)
}

func TestDriveHashChainProbeOnDuplicateKeys(t *testing.T) {
	env := testEnv(t)
	lead := i64Table(t, []int64{7, 8})
	other := i64Table(t, []int64{7, 7, 8})

	var count int
	_, err := Drive(env, []*table.Table{lead, other}, -1, func(int, int) {}, func([]int) { count++ })
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestDriveSkipsNilLeadValues(t *testing.T) {
	env := testEnv(t)
	lead := table.New(typetag.I64, typetag.I64, 2)
	lh := lead.Head.(*column.Numeric[int64])
	lh.AppendNil()
	lh.Append(1)
	lt := lead.Tail.(*column.Numeric[int64])
	lt.Append(0)
	lt.Append(0)
	lead.Count = 2

	other := i64Table(t, []int64{1, 50, 60})

	var count int
	_, err := Drive(env, []*table.Table{lead, other}, -1, func(int, int) {}, func([]int) { count++ })
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
