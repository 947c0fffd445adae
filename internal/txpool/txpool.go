// Package txpool implements the worker's preallocated outbound-datagram
// pool: a fixed array of TxRecords plus an explicit stack of free indices.
// Unlike a size-bucketed sync.Pool, TxRecords are never released back to
// the Go runtime and the pool exposes an exact "outstanding + free == N"
// invariant at any instant. A plain slice used as a stack gives O(1)
// push/pop with no allocation after startup.
package txpool

import "github.com/cnvs/canvas-server/internal/codec"

// RecordSize is the scratch buffer capacity of one TxRecord. Diff frames
// dominate outbound traffic and are bounded by the active region; 1.5 KiB
// comfortably covers a batched diff frame without holding a full snapshot.
const RecordSize = 1536

// TxRecord is a fixed-size preallocated outbound-datagram slot: a scratch
// buffer, its used length, and the destination connection handle.
type TxRecord struct {
	Buf    [RecordSize]byte
	Len    int
	ConnID uint64
}

// Reset clears a record's bookkeeping before reuse; the buffer's bytes are
// overwritten by the next caller and need not be zeroed.
func (r *TxRecord) Reset() {
	r.Len = 0
	r.ConnID = 0
}

// Pool is a worker-local, single-threaded TxRecord pool: N fixed records
// plus a stack of indices not currently in flight. Not safe for concurrent
// use — each worker owns exactly one Pool, touched only from its loop.
type Pool struct {
	records []TxRecord
	free    []int32 // stack of free indices; top is free[len(free)-1]
}

// NewPool preallocates n TxRecords and fills the free stack with all of
// their indices.
func NewPool(n int) *Pool {
	p := &Pool{
		records: make([]TxRecord, n),
		free:    make([]int32, n),
	}
	for i := 0; i < n; i++ {
		p.free[i] = int32(i)
	}
	return p
}

// Acquire pops a free index and returns a pointer to its record plus the
// index (needed to release it on send completion). ok is false when the
// pool is exhausted; callers must drop the send and count it rather than
// block waiting for a record to free up.
func (p *Pool) Acquire() (idx int32, rec *TxRecord, ok bool) {
	n := len(p.free)
	if n == 0 {
		return 0, nil, false
	}
	idx = p.free[n-1]
	p.free = p.free[:n-1]
	rec = &p.records[idx]
	rec.Reset()
	return idx, rec, true
}

// Release returns idx to the free stack after its send has completed.
func (p *Pool) Release(idx int32) {
	p.records[idx].Reset()
	p.free = append(p.free, idx)
}

// Outstanding returns the number of records currently acquired.
func (p *Pool) Outstanding() int {
	return len(p.records) - len(p.free)
}

// Free returns the number of records currently available.
func (p *Pool) Free() int {
	return len(p.free)
}

// Size returns the pool's fixed capacity.
func (p *Pool) Size() int {
	return len(p.records)
}

// FillDiff serializes a DIFF frame's entries directly into the record's
// scratch buffer, truncating to whatever fits in RecordSize. It returns the
// number of entries actually written, so the caller can split an oversized
// diff across multiple records rather than silently dropping the tail.
func (p *Pool) FillDiff(rec *TxRecord, connID uint64, entries []codec.DiffEntry) int {
	maxEntries := (RecordSize - codec.FrameHeaderSize - 4) / codec.DiffEntrySize
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	n := codec.EncodeDiff(rec.Buf[:], entries)
	rec.Len = n
	rec.ConnID = connID
	return len(entries)
}
