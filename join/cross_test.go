package join

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrossFullProduct(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1, 2}, []int64{10, 20})
	right := i64Table(t, []int64{100, 200, 300}, []int64{1000, 2000, 3000})

	out, err := Cross(env, left, right, CrossOptions{})
	require.NoError(t, err)
	require.Equal(t, 6, out.Len())
	require.Equal(t, []int64{1, 1, 1, 2, 2, 2}, i64Values(t, out.Head))
	require.Equal(t, []int64{1000, 2000, 3000, 1000, 2000, 3000}, i64Values(t, out.Tail))
}

func TestCrossConstantLeft(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{7}, []int64{70})
	right := i64Table(t, []int64{1, 2, 3}, []int64{10, 20, 30})

	out, err := Cross(env, left, right, CrossOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	require.Equal(t, []int64{7, 7, 7}, i64Values(t, out.Head))
	require.Equal(t, []int64{10, 20, 30}, i64Values(t, out.Tail))
	require.True(t, out.HeadFlags.Sorted)
}

func TestCrossConstantRight(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1, 2, 3}, []int64{10, 20, 30})
	right := i64Table(t, []int64{9}, []int64{90})

	out, err := Cross(env, left, right, CrossOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	require.Equal(t, []int64{1, 2, 3}, i64Values(t, out.Head))
	require.Equal(t, []int64{90, 90, 90}, i64Values(t, out.Tail))
	require.True(t, out.TailFlags.Sorted)
}
