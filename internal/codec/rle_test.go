package codec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cnvs/canvas-server/internal/constants"
)

func TestRLE_RoundTrip_Zero(t *testing.T) {
	canvas := make([]byte, constants.CanvasCells)
	encoded := EncodeRLE(nil, canvas)

	decoded := make([]byte, constants.CanvasCells)
	require.NoError(t, DecodeRLE(decoded, encoded))
	require.Equal(t, canvas, decoded)
}

func TestRLE_RoundTrip_Random(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	canvas := make([]byte, constants.CanvasCells)
	for i := range canvas {
		canvas[i] = byte(r.Intn(16))
	}

	encoded := EncodeRLE(nil, canvas)
	decoded := make([]byte, constants.CanvasCells)
	require.NoError(t, DecodeRLE(decoded, encoded))
	require.Equal(t, canvas, decoded)
}

func TestRLE_RoundTrip_LongRun(t *testing.T) {
	canvas := make([]byte, constants.CanvasCells)
	for i := range canvas {
		canvas[i] = 7
	}
	encoded := EncodeRLE(nil, canvas)
	// A single color run over 1,000,000 cells must split into multiple
	// (color, run_len<=65535) pairs.
	require.Greater(t, len(encoded)/rleRunSize, 1)

	decoded := make([]byte, constants.CanvasCells)
	require.NoError(t, DecodeRLE(decoded, encoded))
	require.Equal(t, canvas, decoded)
}

func TestRLE_TruncatedStream(t *testing.T) {
	decoded := make([]byte, constants.CanvasCells)
	err := DecodeRLE(decoded, []byte{1, 2})
	require.ErrorIs(t, err, ErrTruncatedRun)
}

func TestRLE_ShortOfCanvas(t *testing.T) {
	decoded := make([]byte, constants.CanvasCells)
	// One run covering only part of the canvas.
	short := []byte{0, 1, 0}
	err := DecodeRLE(decoded, short)
	require.ErrorIs(t, err, ErrRunOverflow)
}

func TestEncodeRLEFrame_HeaderMatchesPayload(t *testing.T) {
	canvas := make([]byte, constants.CanvasCells)
	canvas[CellIndex(100, 200)] = 7

	frame := EncodeRLEFrame(canvas)
	hdr, err := ParseFrameHeader(frame)
	require.NoError(t, err)
	require.Equal(t, constants.FrameRLESnapshot, hdr.Kind)
	require.Equal(t, len(frame)-FrameHeaderSize, int(hdr.Length))

	decoded := make([]byte, constants.CanvasCells)
	require.NoError(t, DecodeRLE(decoded, frame[FrameHeaderSize:]))
	require.Equal(t, canvas, decoded)
}
