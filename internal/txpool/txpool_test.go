package txpool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cnvs/canvas-server/internal/codec"
)

func TestPool_AcquireReleaseTracksOutstanding(t *testing.T) {
	p := NewPool(4)
	require.Equal(t, 4, p.Size())
	require.Equal(t, 0, p.Outstanding())
	require.Equal(t, 4, p.Free())

	idx, rec, ok := p.Acquire()
	require.True(t, ok)
	require.NotNil(t, rec)
	require.Equal(t, 1, p.Outstanding())
	require.Equal(t, 3, p.Free())

	p.Release(idx)
	require.Equal(t, 0, p.Outstanding())
	require.Equal(t, 4, p.Free())
}

func TestPool_AcquireFailsWhenExhausted(t *testing.T) {
	p := NewPool(2)

	_, _, ok1 := p.Acquire()
	_, _, ok2 := p.Acquire()
	require.True(t, ok1)
	require.True(t, ok2)

	_, rec, ok3 := p.Acquire()
	require.False(t, ok3)
	require.Nil(t, rec)
}

func TestPool_AcquireResetsStaleRecord(t *testing.T) {
	p := NewPool(1)

	idx, rec, ok := p.Acquire()
	require.True(t, ok)
	rec.Len = 42
	rec.ConnID = 7
	p.Release(idx)

	_, rec2, ok := p.Acquire()
	require.True(t, ok)
	require.Equal(t, 0, rec2.Len)
	require.Equal(t, uint64(0), rec2.ConnID)
}

func TestPool_FillDiffSerializesEntries(t *testing.T) {
	p := NewPool(1)
	_, rec, ok := p.Acquire()
	require.True(t, ok)

	entries := []codec.DiffEntry{
		{X: 1, Y: 2, C: 3},
		{X: 4, Y: 5, C: 6},
	}
	n := p.FillDiff(rec, 99, entries)
	require.Equal(t, 2, n)
	require.Equal(t, uint64(99), rec.ConnID)
	require.Equal(t, codec.DiffFrameSize(2), rec.Len)

	decoded, err := codec.DecodeDiff(rec.Buf[codec.FrameHeaderSize:rec.Len])
	require.NoError(t, err)
	require.Equal(t, entries, decoded)
}

func TestPool_FillDiffTruncatesOversizedBatch(t *testing.T) {
	p := NewPool(1)
	_, rec, ok := p.Acquire()
	require.True(t, ok)

	maxEntries := (RecordSize - codec.FrameHeaderSize - 4) / codec.DiffEntrySize
	entries := make([]codec.DiffEntry, maxEntries+50)
	for i := range entries {
		entries[i] = codec.DiffEntry{X: uint16(i), Y: uint16(i), C: uint8(i % 16)}
	}

	n := p.FillDiff(rec, 1, entries)
	require.Equal(t, maxEntries, n)
	require.LessOrEqual(t, rec.Len, RecordSize)
}
