// Package ring provides the interface each worker uses to drain UDP
// datagrams from the kernel's ring I/O facility. The real implementation
// (build tag giouring) arms multishot receive against a provided-buffer
// group; a kernel lacking multishot receive is served by the stub
// implementation, which resubmits a single receive per packet.
package ring

import (
	"errors"
	"net"
)

// ErrRingFull is returned when the submission queue has no room for
// another operation.
var ErrRingFull = errors.New("ring: submission queue full")

// Completion is one drained receive: the provided-buffer id holding the
// bytes, how many bytes the kernel filled, and the sender's address.
type Completion struct {
	BufferID uint16
	Length   int
	Addr     net.Addr
}

// Ring is the minimal set of operations a worker needs from the kernel
// ring facility: arm a multishot receive against a registered
// provided-buffer group, drain whatever completions are ready, and give a
// consumed buffer id back to the kernel.
type Ring interface {
	// Close releases the ring and any kernel-side registrations.
	Close() error

	// ArmReceive arms (or re-arms, on a non-multishot fallback) a receive
	// against fd. Called once at startup, and again per packet on rings
	// that don't support multishot.
	ArmReceive(fd int) error

	// Drain pops up to max ready completions without blocking longer than
	// the ring's configured wait policy allows.
	Drain(max int) ([]Completion, error)

	// ProvideBuffer returns bufferID to the kernel's provided-buffer
	// group, making it eligible for a future receive completion.
	ProvideBuffer(bufferID uint16) error

	// Multishot reports whether this ring is running multishot receive
	// (true) or the one-shot resubmit fallback (false).
	Multishot() bool
}

// Config configures a Ring at construction.
type Config struct {
	SubmissionDepth uint32
	CompletionDepth uint32
	BufferCount     int
	BufferSize      int
}

// New constructs a Ring, preferring the real kernel-backed implementation
// when the binary was built with -tags giouring and the running kernel
// supports it, and falling back to the one-shot stub otherwise.
func New(cfg Config) (Ring, error) {
	r, err := newReal(cfg)
	if err == nil {
		return r, nil
	}
	return newStub(cfg), nil
}
