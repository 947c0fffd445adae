//go:build giouring

package ring

import (
	"fmt"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// realRing arms multishot receive against a provided-buffer group
// registered with the kernel ring.
type realRing struct {
	io      *giouring.Ring
	cfg     Config
	groupID uint16
	bufMem  []byte // backing store for the registered provided-buffer group
}

func newReal(cfg Config) (Ring, error) {
	io, err := giouring.CreateRing(cfg.SubmissionDepth)
	if err != nil {
		return nil, fmt.Errorf("ring: giouring.CreateRing: %w", err)
	}

	r := &realRing{io: io, cfg: cfg, groupID: 1}
	if err := r.registerBuffers(); err != nil {
		io.QueueExit()
		return nil, err
	}
	return r, nil
}

// registerBuffers pins cfg.BufferCount buffers of cfg.BufferSize bytes each
// under r.groupID with a single PROVIDE_BUFFERS submission covering the
// whole slab, so the kernel can hand out completions tagged by buffer ID
// without a registration syscall per buffer.
func (r *realRing) registerBuffers() error {
	r.bufMem = make([]byte, int(r.cfg.BufferCount)*int(r.cfg.BufferSize))

	sqe := r.io.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	sqe.PrepareProvideBuffers(
		uintptr(unsafe.Pointer(&r.bufMem[0])),
		r.cfg.BufferSize,
		int(r.cfg.BufferCount),
		r.groupID,
		0,
	)
	if _, err := r.io.Submit(); err != nil {
		return fmt.Errorf("ring: submit provide_buffers: %w", err)
	}

	var cqes [1]*giouring.CompletionQueueEvent
	for r.io.PeekBatchCQE(cqes[:]) == 0 {
	}
	cqe := cqes[0]
	r.io.CQESeen(1)
	if cqe.Res < 0 {
		return fmt.Errorf("ring: provide_buffers failed: res=%d", cqe.Res)
	}
	return nil
}

func (r *realRing) Close() error {
	r.io.QueueExit()
	return nil
}

func (r *realRing) ArmReceive(fd int) error {
	sqe := r.io.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	sqe.PrepareRecvMultishot(fd, 0, 0, 0)
	sqe.SetBufGroup(r.groupID)
	_, err := r.io.Submit()
	return err
}

func (r *realRing) Drain(max int) ([]Completion, error) {
	completions := make([]Completion, 0, max)
	var cqes [64]*giouring.CompletionQueueEvent

	n := r.io.PeekBatchCQE(cqes[:])
	for i := uint32(0); i < n && len(completions) < max; i++ {
		cqe := cqes[i]
		if cqe.Res < 0 {
			r.io.CQESeen(1)
			continue
		}
		completions = append(completions, Completion{
			BufferID: uint16(cqe.Flags >> 16),
			Length:   int(cqe.Res),
			Addr:     nil,
		})
		r.io.CQESeen(1)
	}
	return completions, nil
}

func (r *realRing) ProvideBuffer(bufferID uint16) error {
	sqe := r.io.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	sqe.PrepareProvideBuffers(0, r.cfg.BufferSize, 1, r.groupID, uint32(bufferID))
	_, err := r.io.Submit()
	return err
}

func (r *realRing) Multishot() bool { return true }
