// Package codec implements canvas-server's wire formats: the fixed 9-byte
// client pixel datagram, the server-push frame header, the RLE full-snapshot
// encoding, and the diff-batch encoding. The pixel, frame-header and diff
// encode paths operate directly on caller-supplied byte slices with no
// allocation; DecodeDiff returns a freshly allocated entry slice and
// EncodeRLEFrame returns a freshly allocated frame buffer.
package codec

import (
	"encoding/binary"
	"errors"

	"github.com/cnvs/canvas-server/internal/constants"
)

// PixelSize is the wire size of one PixelDatagram: x,y (u16) + c (u8) +
// user_id (u32) = 9 bytes, little-endian.
const PixelSize = 9

var (
	// ErrWrongLength is returned when a buffer is not exactly PixelSize bytes.
	ErrWrongLength = errors.New("codec: pixel datagram must be exactly 9 bytes")
	// ErrOutOfBounds is returned when x or y is >= the canvas dimension.
	ErrOutOfBounds = errors.New("codec: coordinate out of bounds")
	// ErrBadColor is returned when c is not a valid 4-bit palette index.
	ErrBadColor = errors.New("codec: color out of range")
	// ErrBadUser is returned when user_id >= UserMax.
	ErrBadUser = errors.New("codec: user id out of range")
)

// PixelDatagram is the client->server wire message.
type PixelDatagram struct {
	X      uint16
	Y      uint16
	C      uint8
	UserID uint32
}

// DecodePixel parses buf as a PixelDatagram without copying. Checks run in
// order: length, then coordinates, then color, then user id, so the first
// failing check is the one reported.
func DecodePixel(buf []byte) (PixelDatagram, error) {
	if len(buf) != PixelSize {
		return PixelDatagram{}, ErrWrongLength
	}

	p := PixelDatagram{
		X:      binary.LittleEndian.Uint16(buf[0:2]),
		Y:      binary.LittleEndian.Uint16(buf[2:4]),
		C:      buf[4],
		UserID: binary.LittleEndian.Uint32(buf[5:9]),
	}

	if p.X >= constants.CanvasWidth || p.Y >= constants.CanvasHeight {
		return PixelDatagram{}, ErrOutOfBounds
	}
	if p.C > constants.MaxColor {
		return PixelDatagram{}, ErrBadColor
	}
	if p.UserID >= constants.UserMax {
		return PixelDatagram{}, ErrBadUser
	}

	return p, nil
}

// EncodePixel writes p into buf, which must be at least PixelSize bytes, and
// returns the number of bytes written. It performs no validation; callers
// constructing outbound test fixtures are expected to pass valid fields.
func EncodePixel(buf []byte, p PixelDatagram) int {
	binary.LittleEndian.PutUint16(buf[0:2], p.X)
	binary.LittleEndian.PutUint16(buf[2:4], p.Y)
	buf[4] = p.C
	binary.LittleEndian.PutUint32(buf[5:9], p.UserID)
	return PixelSize
}

// CellIndex returns the flat offset of (x,y) into the W*H canvas byte array.
func CellIndex(x, y uint16) int {
	return int(y)*constants.CanvasWidth + int(x)
}
