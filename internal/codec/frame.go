package codec

import (
	"encoding/binary"
	"errors"

	"github.com/cnvs/canvas-server/internal/constants"
)

// FrameHeaderSize is the server-push frame header: u8 kind + u32 length,
// little-endian.
const FrameHeaderSize = 5

var (
	// ErrShortFrame is returned when a buffer is too small to hold a frame
	// header, or a frame's declared length exceeds the remaining buffer.
	ErrShortFrame = errors.New("codec: frame buffer too short")
	// ErrUnknownKind is returned when a frame header names an unrecognized kind.
	ErrUnknownKind = errors.New("codec: unknown frame kind")
)

// FrameHeader is the common prefix of every server-push frame.
type FrameHeader struct {
	Kind   uint8
	Length uint32
}

// PutFrameHeader writes a frame header into buf (must be >= FrameHeaderSize).
func PutFrameHeader(buf []byte, kind uint8, length uint32) int {
	buf[0] = kind
	binary.LittleEndian.PutUint32(buf[1:5], length)
	return FrameHeaderSize
}

// ParseFrameHeader reads a frame header from the front of buf.
func ParseFrameHeader(buf []byte) (FrameHeader, error) {
	if len(buf) < FrameHeaderSize {
		return FrameHeader{}, ErrShortFrame
	}
	switch buf[0] {
	case constants.FrameRLESnapshot, constants.FrameDiff, constants.FrameCooldownReject:
	default:
		return FrameHeader{}, ErrUnknownKind
	}
	return FrameHeader{
		Kind:   buf[0],
		Length: binary.LittleEndian.Uint32(buf[1:5]),
	}, nil
}

// DiffEntry is one (x, y, c) tuple inside a DIFF frame payload.
type DiffEntry struct {
	X uint16
	Y uint16
	C uint8
}

// DiffEntrySize is the wire size of one DiffEntry: x,y u16 + c u8.
const DiffEntrySize = 5

// EncodeDiff writes a kind=0x02 DIFF frame (header + u32 count + entries)
// into buf and returns the number of bytes written. buf must be at least
// DiffFrameSize(len(entries)) bytes.
func EncodeDiff(buf []byte, entries []DiffEntry) int {
	payloadLen := 4 + len(entries)*DiffEntrySize
	off := PutFrameHeader(buf, constants.FrameDiff, uint32(payloadLen))
	binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(entries)))
	off += 4
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[off:off+2], e.X)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], e.Y)
		buf[off+4] = e.C
		off += DiffEntrySize
	}
	return off
}

// DiffFrameSize returns the total byte length of a DIFF frame carrying n entries.
func DiffFrameSize(n int) int {
	return FrameHeaderSize + 4 + n*DiffEntrySize
}

// DecodeDiff parses a DIFF frame payload (the bytes following the frame
// header) into its entries.
func DecodeDiff(payload []byte) ([]DiffEntry, error) {
	if len(payload) < 4 {
		return nil, ErrShortFrame
	}
	count := binary.LittleEndian.Uint32(payload[0:4])
	need := 4 + int(count)*DiffEntrySize
	if len(payload) < need {
		return nil, ErrShortFrame
	}
	entries := make([]DiffEntry, count)
	off := 4
	for i := range entries {
		entries[i] = DiffEntry{
			X: binary.LittleEndian.Uint16(payload[off : off+2]),
			Y: binary.LittleEndian.Uint16(payload[off+2 : off+4]),
			C: payload[off+4],
		}
		off += DiffEntrySize
	}
	return entries, nil
}

// EncodeCooldownReject writes a kind=0x03 COOLDOWN_REJECT frame.
func EncodeCooldownReject(buf []byte, userID uint32, remainingMs uint32) int {
	off := PutFrameHeader(buf, constants.FrameCooldownReject, 8)
	binary.LittleEndian.PutUint32(buf[off:off+4], userID)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], remainingMs)
	return off + 8
}

// CooldownRejectFrameSize is the fixed size of a COOLDOWN_REJECT frame.
const CooldownRejectFrameSize = FrameHeaderSize + 8

// DecodeCooldownReject parses a COOLDOWN_REJECT frame payload.
func DecodeCooldownReject(payload []byte) (userID uint32, remainingMs uint32, err error) {
	if len(payload) < 8 {
		return 0, 0, ErrShortFrame
	}
	return binary.LittleEndian.Uint32(payload[0:4]), binary.LittleEndian.Uint32(payload[4:8]), nil
}
