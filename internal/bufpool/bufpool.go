// Package bufpool manages the provided-buffer slab registered with a
// worker's io_uring instance. Unlike a size-bucketed sync.Pool, these
// buffers are not requested from or returned to the Go runtime: the kernel
// picks one from the registered group for each multishot receive
// completion, and the worker must give it back to the same group once it
// is done, identified by its buffer ID rather than its address.
package bufpool

import "fmt"

// Slab is a flat, contiguously allocated backing store for one provided
// buffer group: Count buffers of Size bytes each, indexed 0..Count-1.
type Slab struct {
	mem     []byte
	size    int
	count   int
	held    []bool // held[i] true while buffer i is checked out to user code
	checkedOut int
}

// NewSlab allocates a slab of count buffers of size bytes each.
func NewSlab(count, size int) *Slab {
	return &Slab{
		mem:   make([]byte, count*size),
		size:  size,
		count: count,
		held:  make([]bool, count),
	}
}

// Count returns the number of buffers in the slab.
func (s *Slab) Count() int { return s.count }

// Size returns the byte size of one buffer.
func (s *Slab) Size() int { return s.size }

// Get returns the byte slice backing buffer id, the full Size-length
// window regardless of how many bytes the kernel actually filled; callers
// slice it down using the completion's byte count.
func (s *Slab) Get(id uint16) []byte {
	off := int(id) * s.size
	return s.mem[off : off+s.size]
}

// Acquire marks buffer id as checked out to user code (outside the kernel's
// provided-buffer group) so CheckedOut can report an accurate count for
// diagnostics and tests. It panics on double-acquire, which would indicate
// a kernel completion reused a buffer ID the worker still believes it
// holds.
func (s *Slab) Acquire(id uint16) {
	if s.held[id] {
		panic(fmt.Sprintf("bufpool: buffer %d already held", id))
	}
	s.held[id] = true
	s.checkedOut++
}

// Release returns buffer id to the kernel's provided-buffer group. The
// caller is responsible for the actual io_uring buffer-ring recycle call;
// this only updates local bookkeeping.
func (s *Slab) Release(id uint16) {
	if !s.held[id] {
		panic(fmt.Sprintf("bufpool: buffer %d released while not held", id))
	}
	s.held[id] = false
	s.checkedOut--
}

// CheckedOut returns the number of buffers currently held outside the
// kernel's group. It must never exceed Count; workers can poll this to
// detect a leak before the group runs dry.
func (s *Slab) CheckedOut() int { return s.checkedOut }
