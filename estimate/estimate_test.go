package estimate

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

func numericTable(t *testing.T, n int) *table.Table {
	t.Helper()
	tab := table.New(typetag.I64, typetag.I64, n)
	h := tab.Head.(*column.Numeric[int64])
	tl := tab.Tail.(*column.Numeric[int64])
	for i := 0; i < n; i++ {
		h.Append(int64(i))
		tl.Append(int64(i))
	}
	tab.Count = n
	return tab
}

func constJoin(n int) JoinFunc {
	return func(ctx context.Context, left, right *table.Table) (int, error) {
		return n, nil
	}
}

type stubSampler struct {
	sample *table.Table
}

func (s stubSampler) RandomSample(t *table.Table, n int) (*table.Table, error) {
	return s.sample, nil
}

func TestEstimateHintIsTrusted(t *testing.T) {
	left := numericTable(t, 10)
	right := numericTable(t, 10)
	n, err := Estimate(context.Background(), left, right, Params{Hint: 77}, constJoin(0), stubSampler{}, nil)
	require.NoError(t, err)
	require.Equal(t, 77, n)
}

func TestEstimateEmptySideIsZero(t *testing.T) {
	left := numericTable(t, 0)
	right := numericTable(t, 10)
	n, err := Estimate(context.Background(), left, right, Params{T: 17}, constJoin(0), stubSampler{}, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestEstimateSmallInputHeuristic(t *testing.T) {
	left := numericTable(t, 4)
	right := numericTable(t, 5)
	n, err := Estimate(context.Background(), left, right, Params{T: 17}, constJoin(0), stubSampler{}, nil)
	require.NoError(t, err)
	require.Equal(t, 3*4, n)
}

func TestEstimateSmallInputHeuristicRespectsUpperBound(t *testing.T) {
	left := numericTable(t, 4)
	right := numericTable(t, 5)
	n, err := Estimate(context.Background(), left, right, Params{T: 17, RightHeadKey: true}, constJoin(0), stubSampler{}, nil)
	require.NoError(t, err)
	require.Equal(t, 4, n) // upper bound = nl when right head is key
}

func TestEstimateLogSampleUsesSliceJoinCounts(t *testing.T) {
	left := numericTable(t, 5000)
	right := numericTable(t, 5000)
	calls := 0
	join := func(ctx context.Context, l, r *table.Table) (int, error) {
		calls++
		return l.Len(), nil
	}
	n, err := Estimate(context.Background(), left, right, Params{T: 2}, join, stubSampler{}, logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	require.Greater(t, calls, 0)
	require.Greater(t, n, 0)
}

func TestEstimateOutlierFallsBackToRandomSample(t *testing.T) {
	// 20000 left rows with T=2 give k = 14-2 = 12 slices of 1000, so the
	// first slice's count stands out against the other eleven.
	left := numericTable(t, 20000)
	right := numericTable(t, 5000)
	sample := numericTable(t, 50)

	first := true
	join := func(ctx context.Context, l, r *table.Table) (int, error) {
		if first && l.Len() != sample.Len() {
			first = false
			return 100000, nil // one wildly high slice count triggers outlier()
		}
		return 1, nil
	}
	n, err := Estimate(context.Background(), left, right, Params{T: 2}, join, stubSampler{sample: sample}, nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 0)
	// The 50-row sample yields 1 match: ceil(1*20000 / (0.95*50)) = 422.
	require.Equal(t, 422, n)
}
