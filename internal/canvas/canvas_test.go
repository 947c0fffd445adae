package canvas

import (
	"testing"

	"github.com/cnvs/canvas-server/internal/codec"
	"github.com/cnvs/canvas-server/internal/constants"
	"github.com/stretchr/testify/require"
)

func TestAuthoritative_ApplyAndPublish(t *testing.T) {
	a := New()
	require.Equal(t, uint64(0), a.Load().Version)

	a.Apply([]codec.DiffEntry{{X: 5, Y: 10, C: 3}, {X: 7, Y: 2, C: 9}})
	region := a.Publish()

	require.True(t, region.Valid)
	require.Equal(t, uint16(5), region.MinX)
	require.Equal(t, uint16(7), region.MaxX)
	require.Equal(t, uint16(2), region.MinY)
	require.Equal(t, uint16(10), region.MaxY)

	snap := a.Load()
	require.Equal(t, uint64(1), snap.Version)
	require.Equal(t, uint8(3), snap.Grid[codec.CellIndex(5, 10)])
	require.Equal(t, uint8(9), snap.Grid[codec.CellIndex(7, 2)])
}

func TestAuthoritative_PublishWithNoWritesYieldsEmptyRegion(t *testing.T) {
	a := New()
	region := a.Publish()
	require.False(t, region.Valid)
	require.Equal(t, uint64(1), a.Load().Version)
}

func TestAuthoritative_RegionResetsAfterPublish(t *testing.T) {
	a := New()
	a.Apply([]codec.DiffEntry{{X: 1, Y: 1, C: 1}})
	a.Publish()
	region := a.Publish()
	require.False(t, region.Valid, "second publish with no new writes must report an empty region")
}

func TestAuthoritative_SnapshotIsolatedFromFutureWrites(t *testing.T) {
	a := New()
	a.Apply([]codec.DiffEntry{{X: 0, Y: 0, C: 1}})
	a.Publish()
	snap := a.Load()

	a.Apply([]codec.DiffEntry{{X: 0, Y: 0, C: 2}})
	a.Publish()

	require.Equal(t, uint8(1), snap.Grid[codec.CellIndex(0, 0)], "previously published snapshot must not observe later writes")
}

func TestLocal_AdvanceSkipsStaleSnapshot(t *testing.T) {
	l := NewLocal(constants.CanvasCells)
	snap := &Snapshot{Grid: make([]byte, constants.CanvasCells), Version: 5}
	_, ok := l.Advance(snap)
	require.True(t, ok)
	require.Equal(t, uint64(5), l.Version())

	stale := &Snapshot{Grid: make([]byte, constants.CanvasCells), Version: 3}
	_, ok = l.Advance(stale)
	require.False(t, ok)
	require.Equal(t, uint64(5), l.Version())
}

func TestLocal_DiffOnlyReportsChangedCells(t *testing.T) {
	l := NewLocal(constants.CanvasCells)
	grid := make([]byte, constants.CanvasCells)
	grid[codec.CellIndex(2, 2)] = 7
	grid[codec.CellIndex(5, 5)] = 9
	region, ok := l.Advance(&Snapshot{Grid: grid, Version: 1, Region: Region{MinX: 2, MinY: 2, MaxX: 5, MaxY: 5, Valid: true}})
	require.True(t, ok)

	entries := l.Diff(region)
	require.Len(t, entries, 2)

	entries2 := l.Diff(region)
	require.Empty(t, entries2, "second diff over the same region with no new writes must be empty")
}

func TestLocal_SyncBroadcastToFullClearsDiff(t *testing.T) {
	l := NewLocal(constants.CanvasCells)
	grid := make([]byte, constants.CanvasCells)
	grid[codec.CellIndex(1, 1)] = 4
	region := Region{Valid: true, MaxX: 9, MaxY: 9}
	l.Advance(&Snapshot{Grid: grid, Version: 1, Region: region})
	l.SyncBroadcastToFull()

	entries := l.Diff(region)
	require.Empty(t, entries)
}
