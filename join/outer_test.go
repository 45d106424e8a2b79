package join

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOuterMergePathPreservesUnmatchedLeft(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1, 2}, []int64{5, 9})
	right := i64Table(t, []int64{5}, []int64{50})
	right.HeadFlags.Sorted = true // sorted, not dense -> merge path

	out, err := Outer(env, left, right, OuterOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	require.False(t, out.Tail.IsNil(0))
	require.True(t, out.Tail.IsNil(1))
}

func TestOuterHashPathPreservesUnmatchedLeft(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1, 2}, []int64{5, 9})
	right := i64Table(t, []int64{5}, []int64{50}) // unsorted -> hash-probe path

	out, err := Outer(env, left, right, OuterOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	require.False(t, out.Tail.IsNil(0))
	require.True(t, out.Tail.IsNil(1))
}

func TestOuterEmitsOneTuplePerHitOnMultipleHits(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1}, []int64{5})
	right := i64Table(t, []int64{5, 5}, []int64{50, 51})

	out, err := Outer(env, left, right, OuterOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
}
