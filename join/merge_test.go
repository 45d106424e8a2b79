package join

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colbat/batjoin/jointypes"
)

func TestMergeRequiresSortedRightHead(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1}, []int64{1})
	right := i64Table(t, []int64{1}, []int64{10})
	_, err := Merge(env, left, right, MergeOptions{})
	require.True(t, jointypes.ErrNotSorted.Is(err))
}

func TestMergeMatchesEqualKeys(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{100, 200, 300}, []int64{2, 1, 2})
	right := i64Table(t, []int64{1, 2, 3}, []int64{10, 20, 30})
	right.HeadFlags.Sorted = true

	res, err := Merge(env, left, right, MergeOptions{})
	require.NoError(t, err)
	require.Equal(t, []int64{100, 200, 300}, i64Values(t, res.Output.Head))
	require.Equal(t, []int64{20, 10, 20}, i64Values(t, res.Output.Tail))
}

func TestMergeMissValueEmitsNilTail(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{100, 200}, []int64{2, 5})
	right := i64Table(t, []int64{1, 2, 3}, []int64{10, 20, 30})
	right.HeadFlags.Sorted = true

	res, err := Merge(env, left, right, MergeOptions{MissValue: true})
	require.NoError(t, err)
	require.Equal(t, 2, res.Output.Len())
	require.Equal(t, []int64{100, 200}, i64Values(t, res.Output.Head))
	require.False(t, res.Output.Tail.IsNil(0))
	require.True(t, res.Output.Tail.IsNil(1))
}

func TestMergeDropsRowsWithNoMatchByDefault(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{100, 200}, []int64{2, 5})
	right := i64Table(t, []int64{1, 2, 3}, []int64{10, 20, 30})
	right.HeadFlags.Sorted = true

	res, err := Merge(env, left, right, MergeOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, res.Output.Len())
	require.Equal(t, []int64{100}, i64Values(t, res.Output.Head))
}

func TestMergeBothSortedUsesIncrementalCursor(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{10, 20, 30}, []int64{1, 2, 3})
	left.TailFlags.Sorted = true
	right := i64Table(t, []int64{1, 2, 3}, []int64{100, 200, 300})
	right.HeadFlags.Sorted = true

	res, err := Merge(env, left, right, MergeOptions{})
	require.NoError(t, err)
	require.Equal(t, []int64{10, 20, 30}, i64Values(t, res.Output.Head))
	require.Equal(t, []int64{100, 200, 300}, i64Values(t, res.Output.Tail))
	require.True(t, res.Output.TailFlags.Sorted)
}

func TestMergeLimitFractionStopsMidRangeWithoutOverrunning(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{9}, []int64{1})
	right := i64Table(t, []int64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	right.HeadFlags.Sorted = true

	res, err := Merge(env, left, right, MergeOptions{SizeHint: 10, LimitFraction: 0.3})
	require.NoError(t, err)
	require.True(t, res.LimitHit)
	require.Equal(t, 3, res.Output.Len())
	require.Equal(t, 1, res.LeftConsumed)
}

func TestScanBudgetForGrowsLogarithmically(t *testing.T) {
	require.Equal(t, 4, scanBudgetFor(1, 4))
	require.Greater(t, scanBudgetFor(1000, 4), scanBudgetFor(10, 4))
}
