// Package canvas implements the authoritative pixel grid owned by the
// master, the active-region tracking that bounds each broadcast tick's
// diff, and the published-snapshot handoff workers read lock-free.
package canvas

import (
	"sync/atomic"

	"github.com/cnvs/canvas-server/internal/codec"
	"github.com/cnvs/canvas-server/internal/constants"
)

// Region is a rectangle bounding all cells written since the last reset.
// An empty region (no writes yet) has Valid false and its bounds are
// meaningless.
type Region struct {
	MinX, MinY uint16
	MaxX, MaxY uint16
	Valid      bool
}

// union grows r to include (x, y).
func (r *Region) union(x, y uint16) {
	if !r.Valid {
		r.MinX, r.MaxX = x, x
		r.MinY, r.MaxY = y, y
		r.Valid = true
		return
	}
	if x < r.MinX {
		r.MinX = x
	}
	if x > r.MaxX {
		r.MaxX = x
	}
	if y < r.MinY {
		r.MinY = y
	}
	if y > r.MaxY {
		r.MaxY = y
	}
}

// Snapshot is an immutable, published view of the authoritative canvas: a
// byte grid, the version it was published at, and the active region
// accumulated since the previous publish. Workers hold a *Snapshot behind
// an atomic load and never mutate it.
type Snapshot struct {
	Grid    []byte
	Version uint64
	Region  Region
}

// Authoritative is the master-owned pixel grid. Apply and Publish are
// called only from the master goroutine; Load is safe for any worker
// goroutine to call concurrently with Publish.
type Authoritative struct {
	grid    []byte
	version uint64
	region  Region

	published atomic.Pointer[Snapshot]
}

// New creates an Authoritative canvas of CanvasCells zero bytes and
// publishes an initial empty snapshot at version 0.
func New() *Authoritative {
	a := &Authoritative{
		grid: make([]byte, constants.CanvasCells),
	}
	a.published.Store(&Snapshot{
		Grid:    append([]byte(nil), a.grid...),
		Version: 0,
	})
	return a
}

// Apply writes each entry into the grid and grows the active region to
// cover it. Entries are assumed already validated (bounds, color range)
// by the codec layer; Apply does not re-check them. It does not bump the
// version or publish — callers batch many Apply calls between Publish
// calls so the version only advances once per merge batch.
func (a *Authoritative) Apply(entries []codec.DiffEntry) {
	for _, e := range entries {
		a.grid[codec.CellIndex(e.X, e.Y)] = e.C
		a.region.union(e.X, e.Y)
	}
}

// Version returns the number of publish calls so far.
func (a *Authoritative) Version() uint64 {
	return a.version
}

// Publish copies the current grid, bumps the version, and atomically swaps
// it in as the new published Snapshot, then resets the active region for
// the next accumulation window. It returns the region that was just
// published (possibly empty, if no writes arrived this tick).
func (a *Authoritative) Publish() Region {
	published := a.region
	a.version++
	snap := &Snapshot{
		Grid:    append([]byte(nil), a.grid...),
		Version: a.version,
		Region:  published,
	}
	a.published.Store(snap)
	a.region = Region{}
	return published
}

// Load returns the most recently published Snapshot. Safe for concurrent
// use by any number of reader goroutines.
func (a *Authoritative) Load() *Snapshot {
	return a.published.Load()
}
