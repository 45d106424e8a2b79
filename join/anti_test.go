package join

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAntiEmitsUnequalPairs(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1, 2}, []int64{1, 2})
	right := i64Table(t, []int64{1, 2}, []int64{10, 20})

	out, err := Anti(env, left, right, AntiOptions{})
	require.NoError(t, err)
	// (1,2)->1!=2 match, (2,1)->2!=1 match; (1,1) and (2,2) excluded
	require.Equal(t, 2, out.Len())
}

func TestAntiAllPairsUnequalWhenDisjoint(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1}, []int64{1})
	right := i64Table(t, []int64{10, 20}, []int64{10, 20})

	out, err := Anti(env, left, right, AntiOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
}

func TestAntiOutputUnordered(t *testing.T) {
	env := testEnv(t)
	left := i64Table(t, []int64{1}, []int64{1})
	left.HeadFlags.Sorted = true
	right := i64Table(t, []int64{5}, []int64{5})

	out, err := Anti(env, left, right, AntiOptions{})
	require.NoError(t, err)
	require.False(t, out.HeadFlags.Sorted)
}
