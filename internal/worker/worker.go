// Package worker implements one worker's main loop: drain ring
// completions, decode and admit pixel writes, forward accepted writes to
// the master, drain the master's merged updates back into the local
// canvas, and broadcast diffs (or bootstrap snapshots) to connections.
package worker

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cnvs/canvas-server/internal/bufpool"
	"github.com/cnvs/canvas-server/internal/canvas"
	"github.com/cnvs/canvas-server/internal/codec"
	"github.com/cnvs/canvas-server/internal/constants"
	"github.com/cnvs/canvas-server/internal/logging"
	"github.com/cnvs/canvas-server/internal/quicsrv"
	"github.com/cnvs/canvas-server/internal/ring"
	"github.com/cnvs/canvas-server/internal/spsc"
	"github.com/cnvs/canvas-server/internal/txpool"
	"github.com/cnvs/canvas-server/internal/wheel"
)

// Config configures a single worker.
type Config struct {
	ID               int
	CPU              int // -1 means no affinity pinning
	ListenAddr       string
	CertFile, KeyFile string

	SubmissionDepth uint32
	CompletionDepth uint32
	BufferCount     int
	BufferSize      int
	TxPoolSize      int
	MaxConns        int
	IdleTimeout     time.Duration
	CooldownSlots   int
	CooldownTick    time.Duration
	BroadcastEvery  time.Duration
	MaintenanceEvery time.Duration
	DrainBatch      int

	// ToMaster carries accepted writes for the master to merge.
	ToMaster *spsc.Queue[codec.DiffEntry]
	// Canvas is read-only from the worker's perspective; it is the
	// master's single published canvas, not a queue. Worker loads its
	// latest snapshot every loop iteration and on each broadcast tick.
	Canvas *canvas.Authoritative
}

// Worker owns a slice of connections, one kernel ring, one TxPool, one
// cooldown wheel, and a local canvas copy. Everything it touches is
// private to its own goroutine; there is no cross-worker sharing except
// through ToMaster and the master's published canvas snapshot.
type Worker struct {
	cfg   Config
	log   *logging.Logger
	ring  ring.Ring
	slab  *bufpool.Slab
	tx    *txpool.Pool
	wheel *wheel.Wheel
	local *canvas.Local

	listener *quicsrv.Listener
	conns    map[string]*quicsrv.Connection

	lastBroadcast   time.Time
	lastMaintenance time.Time

	// metrics, filled in by the caller's Metrics instance in a full wiring;
	// kept as plain counters here so the worker has no hard dependency on
	// the metrics package.
	decodeErrors   uint64
	cooldownDrops  uint64
	mergeDrops     uint64
	admissionDrops uint64
}

// New constructs a Worker. The kernel ring, buffer slab, TxPool, and
// cooldown wheel are all allocated up front. The broadcast path still
// allocates: Local.Diff builds a fresh entry slice and each bootstrap
// snapshot is encoded into a fresh frame buffer.
func New(cfg Config) (*Worker, error) {
	r, err := ring.New(ring.Config{
		SubmissionDepth: cfg.SubmissionDepth,
		CompletionDepth: cfg.CompletionDepth,
		BufferCount:     cfg.BufferCount,
		BufferSize:      cfg.BufferSize,
	})
	if err != nil {
		return nil, err
	}

	w := &Worker{
		cfg:   cfg,
		log:   logging.Default().WithWorker(cfg.ID),
		ring:  r,
		slab:  bufpool.NewSlab(cfg.BufferCount, cfg.BufferSize),
		tx:    txpool.NewPool(cfg.TxPoolSize),
		wheel: wheel.New(cfg.CooldownSlots, cfg.CooldownTick),
		local: canvas.NewLocal(constants.CanvasCells),
		conns: make(map[string]*quicsrv.Connection, cfg.MaxConns),
	}
	return w, nil
}

// Run pins the calling goroutine to its own OS thread (and, if configured,
// a specific CPU), opens the QUIC listener, and runs the main loop until
// ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.cfg.CPU >= 0 {
		var mask unix.CPUSet
		mask.Set(w.cfg.CPU)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			w.log.WithError(err).Warn("failed to set worker CPU affinity")
		}
	}

	listener, err := quicsrv.Listen(quicsrv.ListenerConfig{
		Addr:     w.cfg.ListenAddr,
		CertFile: w.cfg.CertFile,
		KeyFile:  w.cfg.KeyFile,
	})
	if err != nil {
		return err
	}
	w.listener = listener
	defer listener.Close()

	go w.acceptLoop(ctx)

	now := time.Now()
	w.lastBroadcast = now
	w.lastMaintenance = now

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		w.drainCompletions(constants.DefaultMasterBatchDrain)
		w.drainMaster()

		now := time.Now()
		// Checked every loop iteration, independent of the coarser
		// maintenance cadence below: the wheel's cooldown window depends on
		// rotating one slot per CooldownTick, which is typically much
		// shorter than MaintenanceEvery.
		w.wheel.MaybeAdvance(now)
		if now.Sub(w.lastBroadcast) >= w.cfg.BroadcastEvery {
			w.broadcastTick()
			w.lastBroadcast = now
		}
		if now.Sub(w.lastMaintenance) >= w.cfg.MaintenanceEvery {
			w.maintenanceTick(now)
			w.lastMaintenance = now
		}
	}
}

// acceptLoop accepts new QUIC connections and admits them, subject to
// MaxConns.
func (w *Worker) acceptLoop(ctx context.Context) {
	for {
		conn, err := w.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.WithError(err).Warn("accept failed")
			continue
		}
		if len(w.conns) >= w.cfg.MaxConns {
			w.admissionDrops++
			conn.Close(1, "worker at capacity")
			continue
		}
		w.conns[conn.ID()] = conn
		go w.connLoop(ctx, conn)
	}
}

// connLoop reads pixel submissions from one connection's datagram stream
// until it closes or ctx is canceled.
func (w *Worker) connLoop(ctx context.Context, conn *quicsrv.Connection) {
	for {
		buf, err := conn.ReceiveDatagram(ctx)
		if err != nil {
			conn.MarkClosing()
			return
		}
		conn.MarkActive(time.Now())
		w.handlePixel(conn, buf)
	}
}

// handlePixel decodes, cooldown-checks, and forwards one submitted pixel to
// the master. The local canvas is not written here; it catches up from the
// master's published snapshot.
func (w *Worker) handlePixel(conn *quicsrv.Connection, buf []byte) {
	p, err := codec.DecodePixel(buf)
	if err != nil {
		w.decodeErrors++
		return
	}
	if _, known := conn.User(); !known {
		conn.SetUser(p.UserID)
	}

	if w.wheel.IsOnCooldown(p.UserID) {
		w.cooldownDrops++
		return
	}
	w.wheel.Mark(p.UserID)

	entry := codec.DiffEntry{X: p.X, Y: p.Y, C: p.C}
	if !w.cfg.ToMaster.Push(entry) {
		w.mergeDrops++
	}
}

// drainCompletions pops up to max completions from the kernel ring. In
// the full wiring, each completion's bytes feed the QUIC library's packet
// ingestion; here the ring is responsible for UDP-level datagram receipt
// underneath the per-connection QUIC state the listener already manages,
// so draining only re-provides buffers.
func (w *Worker) drainCompletions(max int) {
	completions, err := w.ring.Drain(max)
	if err != nil {
		w.log.WithError(err).Warn("ring drain failed")
		return
	}
	for _, c := range completions {
		_ = w.ring.ProvideBuffer(c.BufferID)
	}
}

// drainMaster advances the local canvas to whatever the master has most
// recently published.
func (w *Worker) drainMaster() {
	snap := w.cfg.Canvas.Load()
	w.local.Advance(snap)
}

// broadcastTick pushes a diff (or bootstrap snapshot) to every connection.
func (w *Worker) broadcastTick() {
	snap := w.cfg.Canvas.Load()
	region, advanced := w.local.Advance(snap)
	if !advanced {
		region = canvas.Region{}
	}

	var diff []codec.DiffEntry
	if region.Valid {
		diff = w.local.Diff(region)
	}

	for id, conn := range w.conns {
		if conn.State() == quicsrv.StateClosing {
			delete(w.conns, id)
			continue
		}
		if !conn.SnapshotSent() {
			w.sendSnapshot(conn)
			continue
		}
		if len(diff) > 0 {
			w.sendDiff(conn, diff)
		}
	}
}

func (w *Worker) sendSnapshot(conn *quicsrv.Connection) {
	frame := codec.EncodeRLEFrame(w.local.FullGrid())
	st, err := conn.OpenBroadcastStream(context.Background())
	if err != nil {
		conn.MarkClosing()
		return
	}
	if _, err := st.Write(frame); err != nil {
		conn.MarkClosing()
		return
	}
	conn.MarkSnapshotSent()
	w.local.SyncBroadcastToFull()
}

// sendDiff writes diff to conn, splitting across as many TxRecords as
// needed since one record's scratch buffer may not hold every entry. Every
// entry in diff has already been marked broadcast by Local.Diff, so
// truncating to one record would silently diverge that connection from the
// authoritative canvas until its next full snapshot; the loop keeps going
// until diff is fully sent. It stops early if the connection errors or no
// TxRecord can be acquired, and in the latter case the remaining entries
// are not sent.
func (w *Worker) sendDiff(conn *quicsrv.Connection, diff []codec.DiffEntry) {
	st, err := conn.OpenBroadcastStream(context.Background())
	if err != nil {
		conn.MarkClosing()
		return
	}
	for len(diff) > 0 {
		idx, rec, ok := w.tx.Acquire()
		if !ok {
			return
		}
		written := w.tx.FillDiff(rec, 0, diff)
		_, werr := st.Write(rec.Buf[:rec.Len])
		w.tx.Release(idx)
		if werr != nil {
			conn.MarkClosing()
			return
		}
		diff = diff[written:]
	}
}

// maintenanceTick evicts idle connections. The cooldown wheel advances on
// its own, finer-grained cadence in Run, not here.
func (w *Worker) maintenanceTick(now time.Time) {
	for id, conn := range w.conns {
		if conn.IdleFor(now) > w.cfg.IdleTimeout {
			conn.MarkClosing()
			conn.Close(0, "idle timeout")
			delete(w.conns, id)
		}
	}
}

// Stats returns a snapshot of this worker's counters.
type Stats struct {
	Connections    int
	DecodeErrors   uint64
	CooldownDrops  uint64
	MergeDrops     uint64
	AdmissionDrops uint64
}

// Stats reports the worker's current counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Connections:    len(w.conns),
		DecodeErrors:   w.decodeErrors,
		CooldownDrops:  w.cooldownDrops,
		MergeDrops:     w.mergeDrops,
		AdmissionDrops: w.admissionDrops,
	}
}
