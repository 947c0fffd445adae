//go:build !giouring

package ring

import (
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// newReal is unavailable without the giouring build tag; New falls back to
// newStub whenever this returns an error.
func newReal(cfg Config) (Ring, error) {
	return nil, fmt.Errorf("ring: giouring not enabled; build with -tags giouring")
}

// stubRing is the fallback for kernels or builds without multishot receive:
// one recvfrom per packet, immediately resubmitted. It trades the extra
// syscall-per-packet for portability (non-Linux, or a Linux kernel too old
// for ring-based multishot receive).
type stubRing struct {
	cfg  Config
	fd   int
	bufs [][]byte
	next uint16
}

func newStub(cfg Config) Ring {
	bufs := make([][]byte, cfg.BufferCount)
	for i := range bufs {
		bufs[i] = make([]byte, cfg.BufferSize)
	}
	return &stubRing{cfg: cfg, bufs: bufs}
}

func (r *stubRing) Close() error { return nil }

func (r *stubRing) ArmReceive(fd int) error {
	r.fd = fd
	return nil
}

func (r *stubRing) Drain(max int) ([]Completion, error) {
	completions := make([]Completion, 0, max)
	for len(completions) < max {
		bufID := r.next
		r.next = (r.next + 1) % uint16(len(r.bufs))
		buf := r.bufs[bufID]

		n, from, err := unix.Recvfrom(r.fd, buf, unix.MSG_DONTWAIT)
		if err != nil {
			if err == unix.EAGAIN || err == syscall.EWOULDBLOCK {
				break
			}
			return completions, err
		}

		completions = append(completions, Completion{
			BufferID: bufID,
			Length:   n,
			Addr:     sockaddrToAddr(from),
		})
	}
	return completions, nil
}

func (r *stubRing) ProvideBuffer(bufferID uint16) error {
	// The stub's buffers are never owned by a kernel group; they're just
	// reused in round-robin order by Drain, so there is nothing to give
	// back.
	return nil
}

func (r *stubRing) Multishot() bool { return false }

func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch s := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: s.Addr[:], Port: s.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: s.Addr[:], Port: s.Port}
	default:
		return nil
	}
}
