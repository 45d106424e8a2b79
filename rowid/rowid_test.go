package rowid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefined(t *testing.T) {
	require.True(t, ID(0).Defined())
	require.True(t, ID(42).Defined())
	require.False(t, Nil.Defined())
}

func TestSeq(t *testing.T) {
	require.Equal(t, ID(10), Seq(10, 0))
	require.Equal(t, ID(15), Seq(10, 5))
}
