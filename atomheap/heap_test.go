package atomheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternDeduplicates(t *testing.T) {
	h := New()
	a := h.Intern("hello")
	b := h.Intern("world")
	c := h.Intern("hello")

	require.Equal(t, a, c)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, h.Len())
	require.Equal(t, "hello", h.At(a))
	require.Equal(t, "world", h.At(b))
}

func TestShareIncrementsRefcount(t *testing.T) {
	h := New()
	require.EqualValues(t, 1, h.RefCount())

	shared := h.Share()
	require.Same(t, h, shared)
	require.EqualValues(t, 2, h.RefCount())

	h.Release()
	require.EqualValues(t, 1, h.RefCount())
}
