package codec

import (
	"encoding/binary"
	"errors"

	"github.com/cnvs/canvas-server/internal/constants"
)

// ErrTruncatedRun is returned when an RLE byte stream ends mid-run.
var ErrTruncatedRun = errors.New("codec: truncated RLE run")

// ErrRunOverflow is returned when decoded run lengths do not sum to exactly
// the canvas size (more or fewer cells than the canvas holds).
var ErrRunOverflow = errors.New("codec: RLE runs overflow canvas size")

// rleRunSize is the wire size of one (color u8, run_len u16) pair.
const rleRunSize = 3

// maxRunLen is the largest length encodable in a u16 run.
const maxRunLen = 65535

// EncodeRLE scans canvas (must be exactly CanvasCells bytes) and appends its
// run-length encoding to dst, returning the grown slice.
func EncodeRLE(dst []byte, canvas []byte) []byte {
	if len(canvas) != constants.CanvasCells {
		panic("codec: EncodeRLE requires a full-size canvas")
	}

	i := 0
	for i < len(canvas) {
		color := canvas[i]
		runEnd := i + 1
		for runEnd < len(canvas) && runEnd-i < maxRunLen && canvas[runEnd] == color {
			runEnd++
		}
		runLen := runEnd - i

		var hdr [rleRunSize]byte
		hdr[0] = color
		binary.LittleEndian.PutUint16(hdr[1:3], uint16(runLen))
		dst = append(dst, hdr[:]...)

		i = runEnd
	}
	return dst
}

// DecodeRLE expands an RLE byte stream into dst, which must be exactly
// CanvasCells bytes. It returns an error if the stream is truncated or the
// runs don't sum to exactly CanvasCells.
func DecodeRLE(dst []byte, data []byte) error {
	if len(dst) != constants.CanvasCells {
		panic("codec: DecodeRLE requires a full-size destination")
	}

	pos := 0
	for off := 0; off < len(data); off += rleRunSize {
		if off+rleRunSize > len(data) {
			return ErrTruncatedRun
		}
		color := data[off]
		runLen := int(binary.LittleEndian.Uint16(data[off+1 : off+3]))
		if pos+runLen > len(dst) {
			return ErrRunOverflow
		}
		for k := 0; k < runLen; k++ {
			dst[pos+k] = color
		}
		pos += runLen
	}
	if pos != len(dst) {
		return ErrRunOverflow
	}
	return nil
}

// EncodeRLEFrame writes a full kind=0x01 RLE_SNAPSHOT frame (header +
// payload) for canvas into a freshly allocated buffer sized to fit.
func EncodeRLEFrame(canvas []byte) []byte {
	payload := EncodeRLE(make([]byte, 0, constants.CanvasCells/4), canvas)
	buf := make([]byte, FrameHeaderSize+len(payload))
	PutFrameHeader(buf, constants.FrameRLESnapshot, uint32(len(payload)))
	copy(buf[FrameHeaderSize:], payload)
	return buf
}
