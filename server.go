// Package canvas is the public API for running a canvas server: a
// multi-worker QUIC ingress sharing one authoritative pixel canvas through
// a lock-free master/worker merge pipeline.
package canvas

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	icanvas "github.com/cnvs/canvas-server/internal/canvas"
	"github.com/cnvs/canvas-server/internal/codec"
	"github.com/cnvs/canvas-server/internal/constants"
	"github.com/cnvs/canvas-server/internal/logging"
	"github.com/cnvs/canvas-server/internal/master"
	"github.com/cnvs/canvas-server/internal/spsc"
	"github.com/cnvs/canvas-server/internal/worker"
)

// Params configures a canvas Server.
type Params struct {
	ListenAddr string
	CertFile   string
	KeyFile    string

	NumWorkers  int
	CPUAffinity []int // per-worker CPU index; -1 or short slice means unpinned

	SubmissionDepth  uint32
	CompletionDepth  uint32
	BufferCount      int
	BufferSize       int
	TxPoolSize       int
	MaxConnsPerWorker int
	IdleTimeout      time.Duration
	CooldownSlots    int
	CooldownTick     time.Duration
	BroadcastEvery   time.Duration
	MaintenanceEvery time.Duration
	DrainBatch       int
	PublishEvery     time.Duration

	Observer Observer
}

// DefaultParams returns sensible defaults for running a canvas Server.
func DefaultParams() Params {
	return Params{
		ListenAddr:        fmt.Sprintf(":%d", constants.DefaultPort),
		NumWorkers:        1,
		SubmissionDepth:   constants.DefaultSubmissionDepth,
		CompletionDepth:   constants.DefaultCompletionDepth,
		BufferCount:       constants.DefaultBufferCount,
		BufferSize:        constants.DefaultBufferSize,
		TxPoolSize:        constants.DefaultTxPoolSize,
		MaxConnsPerWorker: constants.DefaultMaxConns,
		IdleTimeout:       constants.DefaultIdleTimeout,
		CooldownSlots:     constants.DefaultWheelSlots,
		CooldownTick:      constants.DefaultWheelTick,
		BroadcastEvery:    constants.DefaultBroadcastInterval,
		MaintenanceEvery:  constants.DefaultMaintenanceInterval,
		DrainBatch:        constants.DefaultMasterBatchDrain,
		PublishEvery:      constants.DefaultBroadcastInterval,
	}
}

// ServerState is a Server's current lifecycle state.
type ServerState string

const (
	ServerStateCreated ServerState = "created"
	ServerStateRunning ServerState = "running"
	ServerStateStopped ServerState = "stopped"
)

// Server runs one authoritative canvas fed by N independent workers and a
// single merging master.
type Server struct {
	params  Params
	canvas  *icanvas.Authoritative
	workers []*worker.Worker
	master  *master.Master

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	metrics  *Metrics
	observer Observer

	started bool
	stopped bool
}

// Serve builds and starts a canvas Server: it constructs the authoritative
// canvas, one SPSC queue per worker, NumWorkers workers, and one master, and
// launches them all as goroutines under an errgroup. It returns once those
// goroutines are launched and does not wait for the listeners: each worker
// opens its listener inside its own Run, so a listen failure is not
// returned by Serve; it ends that worker's Run, cancels the other
// goroutines through the errgroup, and is returned by Shutdown. I/O
// continues until Shutdown is called or ctx is canceled.
func Serve(ctx context.Context, params Params) (*Server, error) {
	if params.NumWorkers <= 0 {
		params.NumWorkers = 1
	}

	metrics := NewMetrics()
	observer := params.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	authCanvas := icanvas.New()

	queues := make([]*spsc.Queue[codec.DiffEntry], params.NumWorkers)
	for i := range queues {
		queues[i] = spsc.NewQueue[codec.DiffEntry](constants.SPSCQueueSize)
	}

	workers := make([]*worker.Worker, params.NumWorkers)
	for i := 0; i < params.NumWorkers; i++ {
		cpu := -1
		if i < len(params.CPUAffinity) {
			cpu = params.CPUAffinity[i]
		}
		w, err := worker.New(worker.Config{
			ID:               i,
			CPU:              cpu,
			ListenAddr:       params.ListenAddr,
			CertFile:         params.CertFile,
			KeyFile:          params.KeyFile,
			SubmissionDepth:  params.SubmissionDepth,
			CompletionDepth:  params.CompletionDepth,
			BufferCount:      params.BufferCount,
			BufferSize:       params.BufferSize,
			TxPoolSize:       params.TxPoolSize,
			MaxConns:         params.MaxConnsPerWorker,
			IdleTimeout:      params.IdleTimeout,
			CooldownSlots:    params.CooldownSlots,
			CooldownTick:     params.CooldownTick,
			BroadcastEvery:   params.BroadcastEvery,
			MaintenanceEvery: params.MaintenanceEvery,
			DrainBatch:       params.DrainBatch,
			ToMaster:         queues[i],
			Canvas:           authCanvas,
		})
		if err != nil {
			return nil, WrapError("server.serve", err)
		}
		workers[i] = w
	}

	m := master.New(master.Config{
		Canvas:       authCanvas,
		FromWorkers:  queues,
		DrainBatch:   params.DrainBatch,
		PublishEvery: params.PublishEvery,
	})

	runCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(runCtx)

	s := &Server{
		params:   params,
		canvas:   authCanvas,
		workers:  workers,
		master:   m,
		ctx:      runCtx,
		cancel:   cancel,
		eg:       eg,
		metrics:  metrics,
		observer: observer,
		started:  true,
	}

	eg.Go(func() error { return m.Run(egCtx) })
	for _, w := range workers {
		w := w
		eg.Go(func() error { return w.Run(egCtx) })
	}

	logging.Default().Info("canvas server started")
	return s, nil
}

// Shutdown cancels every worker and the master, then waits for them to
// return (or ctx to expire, whichever comes first).
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.stopped {
		return nil
	}
	s.cancel()
	s.stopped = true
	s.metrics.Stop()

	done := make(chan error, 1)
	go func() { done <- s.eg.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return WrapError("server.shutdown", err)
		}
		return nil
	case <-ctx.Done():
		return NewError("server.shutdown", ErrCodeShutdownFailed, "timed out waiting for workers to stop")
	}
}

// State reports the Server's current lifecycle state.
func (s *Server) State() ServerState {
	if s == nil || !s.started {
		return ServerStateCreated
	}
	if s.stopped {
		return ServerStateStopped
	}
	select {
	case <-s.ctx.Done():
		return ServerStateStopped
	default:
		return ServerStateRunning
	}
}

// Info summarizes the Server's configuration and current worker stats.
type Info struct {
	ListenAddr  string
	NumWorkers  int
	State       ServerState
	Connections int
}

// Info returns a point-in-time summary of the Server.
func (s *Server) Info() Info {
	if s == nil {
		return Info{}
	}
	conns := 0
	for _, w := range s.workers {
		conns += w.Stats().Connections
	}
	return Info{
		ListenAddr:  s.params.ListenAddr,
		NumWorkers:  len(s.workers),
		State:       s.State(),
		Connections: conns,
	}
}

// Metrics returns the server's metrics instance.
func (s *Server) Metrics() *Metrics {
	if s == nil {
		return nil
	}
	return s.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of server metrics.
func (s *Server) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.Snapshot()
}

// CanvasVersion returns the authoritative canvas's current published
// version.
func (s *Server) CanvasVersion() uint64 {
	if s == nil {
		return 0
	}
	return s.canvas.Load().Version
}
