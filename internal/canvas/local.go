package canvas

import "github.com/cnvs/canvas-server/internal/codec"

// Local is a worker's own copy of the canvas, kept strictly behind the
// authoritative grid: it only advances by copying from a published
// Snapshot between broadcast ticks. Alongside it, broadcast tracks the
// last grid contents actually sent to this worker's connections — a
// single shared bitmap rather than one per connection, since per-
// connection diffing doesn't scale to hundreds of thousands of sockets.
type Local struct {
	grid      []byte
	broadcast []byte
	version   uint64
}

// NewLocal creates a Local canvas of size n, zero-initialized.
func NewLocal(n int) *Local {
	return &Local{
		grid:      make([]byte, n),
		broadcast: make([]byte, n),
	}
}

// Advance copies snap's grid into the local copy if snap is newer than
// what this Local already has, and reports the region that changed. It is
// a no-op if snap.Version <= the version already applied.
func (l *Local) Advance(snap *Snapshot) (Region, bool) {
	if snap.Version <= l.version {
		return Region{}, false
	}
	copy(l.grid, snap.Grid)
	l.version = snap.Version
	return snap.Region, true
}

// Version returns the version of the master snapshot currently reflected
// locally.
func (l *Local) Version() uint64 {
	return l.version
}

// Cell returns the local grid's color at (x, y).
func (l *Local) Cell(x, y uint16) uint8 {
	return l.grid[codec.CellIndex(x, y)]
}

// Diff scans region and returns (x, y, c) entries for every cell whose
// local value differs from what was last broadcast, then advances the
// broadcast bitmap to match the local grid for the cells scanned. An
// invalid (empty) region yields no entries.
func (l *Local) Diff(region Region) []codec.DiffEntry {
	if !region.Valid {
		return nil
	}
	var entries []codec.DiffEntry
	for y := region.MinY; ; y++ {
		for x := region.MinX; ; x++ {
			idx := codec.CellIndex(x, y)
			if l.grid[idx] != l.broadcast[idx] {
				entries = append(entries, codec.DiffEntry{X: x, Y: y, C: l.grid[idx]})
				l.broadcast[idx] = l.grid[idx]
			}
			if x == region.MaxX {
				break
			}
		}
		if y == region.MaxY {
			break
		}
	}
	return entries
}

// FullGrid returns the local grid's raw bytes, for RLE snapshot encoding.
// The caller must not retain or mutate the returned slice beyond the
// current tick.
func (l *Local) FullGrid() []byte {
	return l.grid
}

// SyncBroadcastToFull marks the entire grid as already broadcast, which a
// newly bootstrapped connection effectively observes once it receives the
// RLE full snapshot: there is nothing left to diff until the next write.
func (l *Local) SyncBroadcastToFull() {
	copy(l.broadcast, l.grid)
}
