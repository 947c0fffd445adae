package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cnvs/canvas-server/internal/constants"
)

func TestDiff_RoundTrip(t *testing.T) {
	entries := []DiffEntry{
		{X: 1, Y: 2, C: 3},
		{X: 999, Y: 999, C: 15},
	}
	buf := make([]byte, DiffFrameSize(len(entries)))
	n := EncodeDiff(buf, entries)
	require.Equal(t, len(buf), n)

	hdr, err := ParseFrameHeader(buf)
	require.NoError(t, err)
	require.Equal(t, constants.FrameDiff, hdr.Kind)

	got, err := DecodeDiff(buf[FrameHeaderSize:])
	require.NoError(t, err)
	require.Equal(t, entries, got)
}

func TestDiff_EmptyIsValid(t *testing.T) {
	buf := make([]byte, DiffFrameSize(0))
	EncodeDiff(buf, nil)
	got, err := DecodeDiff(buf[FrameHeaderSize:])
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCooldownReject_RoundTrip(t *testing.T) {
	buf := make([]byte, CooldownRejectFrameSize)
	EncodeCooldownReject(buf, 42, 1500)

	hdr, err := ParseFrameHeader(buf)
	require.NoError(t, err)
	require.Equal(t, constants.FrameCooldownReject, hdr.Kind)

	userID, remaining, err := DecodeCooldownReject(buf[FrameHeaderSize:])
	require.NoError(t, err)
	require.Equal(t, uint32(42), userID)
	require.Equal(t, uint32(1500), remaining)
}

func TestParseFrameHeader_ShortBuffer(t *testing.T) {
	_, err := ParseFrameHeader([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrShortFrame)
}
