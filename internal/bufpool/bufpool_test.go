package bufpool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlab_GetReturnsDistinctWindows(t *testing.T) {
	s := NewSlab(4, 16)
	require.Equal(t, 4, s.Count())
	require.Equal(t, 16, s.Size())

	b0 := s.Get(0)
	b1 := s.Get(1)
	require.Len(t, b0, 16)
	b0[0] = 0xAA
	require.NotEqual(t, byte(0xAA), b1[0], "distinct buffer ids must not alias")
}

func TestSlab_AcquireReleaseTracksCheckedOut(t *testing.T) {
	s := NewSlab(4, 16)
	require.Equal(t, 0, s.CheckedOut())

	s.Acquire(2)
	require.Equal(t, 1, s.CheckedOut())

	s.Release(2)
	require.Equal(t, 0, s.CheckedOut())
}

func TestSlab_DoubleAcquirePanics(t *testing.T) {
	s := NewSlab(2, 8)
	s.Acquire(0)
	require.Panics(t, func() { s.Acquire(0) })
}

func TestSlab_ReleaseWithoutAcquirePanics(t *testing.T) {
	s := NewSlab(2, 8)
	require.Panics(t, func() { s.Release(0) })
}
