// Package constants collects the tuning knobs that govern canvas-server's
// data plane: canvas geometry, cooldown timing, ring sizing, and the
// lifecycle timeouts connections and the master operate under.
package constants

import "time"

// Canvas geometry is fixed at 1000x1000 with a 4-bit palette; these are
// not runtime-configurable because the wire formats (RLE run lengths,
// diff coordinate widths) are sized against them.
const (
	// CanvasWidth is the canvas width in cells.
	CanvasWidth = 1000
	// CanvasHeight is the canvas height in cells.
	CanvasHeight = 1000
	// CanvasCells is W*H, the authoritative canvas's byte length.
	CanvasCells = CanvasWidth * CanvasHeight
	// MaxColor is the highest valid 4-bit palette index (c in [0,15]).
	MaxColor = 15
)

// UserMax bounds the cooldown wheel's bitmap width; ids at or above it
// are rejected by the codec.
const UserMax = 1 << 20

// Cooldown wheel defaults.
const (
	// DefaultWheelSlots is the number of rotating bitmap slots.
	DefaultWheelSlots = 8
	// DefaultWheelTick is the duration covered by one slot.
	DefaultWheelTick = 250 * time.Millisecond
)

// Ring / buffer pool defaults.
const (
	// DefaultSubmissionDepth is the submission queue depth.
	DefaultSubmissionDepth = 4096
	// DefaultCompletionDepth is the completion queue depth (>= submission).
	DefaultCompletionDepth = 8192
	// DefaultBufferCount is the size of the provided-buffer slab.
	DefaultBufferCount = 65535
	// DefaultBufferSize is the size in bytes of one provided buffer.
	DefaultBufferSize = 2048
	// DefaultTxPoolSize is the number of preallocated TxRecords.
	DefaultTxPoolSize = 4096
)

// Connection and worker defaults.
const (
	// DefaultMaxConns is the per-worker connection cap.
	DefaultMaxConns = 65536
	// DefaultIdleTimeout closes connections idle beyond this duration.
	DefaultIdleTimeout = 30 * time.Second
	// DefaultMasterBatchDrain bounds items drained per SPSC poll.
	DefaultMasterBatchDrain = 4096
	// DefaultBroadcastInterval is the worker's diff-broadcast cadence.
	DefaultBroadcastInterval = 75 * time.Millisecond
	// DefaultMaintenanceInterval governs wheel-advance checks and idle sweeps.
	DefaultMaintenanceInterval = 1 * time.Second
	// SPSCQueueSize is the capacity of each master<->worker ring; must be a
	// power of two so index masking replaces modulo on the hot path.
	SPSCQueueSize = 1 << 14
)

// ALPN is the QUIC application-layer protocol negotiation identifier: the
// four bytes 'c' 'n' 'v' 's'.
const ALPN = "cnvs"

// DefaultPort is the default UDP port the server listens on.
const DefaultPort = 4433

// Frame kinds for the server-push stream.
const (
	FrameRLESnapshot    uint8 = 0x01
	FrameDiff           uint8 = 0x02
	FrameCooldownReject uint8 = 0x03
)
