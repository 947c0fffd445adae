// Package master implements the single master thread that merges every
// worker's accepted pixel writes into the authoritative canvas and
// publishes a new snapshot at the broadcast cadence.
package master

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/cnvs/canvas-server/internal/canvas"
	"github.com/cnvs/canvas-server/internal/codec"
	"github.com/cnvs/canvas-server/internal/logging"
	"github.com/cnvs/canvas-server/internal/spsc"
)

// Config configures the master loop.
type Config struct {
	Canvas         *canvas.Authoritative
	FromWorkers    []*spsc.Queue[codec.DiffEntry]
	DrainBatch     int
	PublishEvery   time.Duration
}

// Master round-robins over each worker's SPSC queue, applies accepted
// writes to the authoritative canvas, and publishes a snapshot on a fixed
// cadence.
type Master struct {
	cfg Config
	log *logging.Logger

	lastPublish time.Time
}

// New constructs a Master.
func New(cfg Config) *Master {
	return &Master{cfg: cfg, log: logging.Default()}
}

// Run merges writes and publishes snapshots until ctx is canceled. When no
// worker has anything queued, it backs off (bounded exponential) rather
// than spinning the core at 100%.
func (m *Master) Run(ctx context.Context) error {
	m.lastPublish = time.Now()

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Microsecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Millisecond,
	}
	bo.Reset()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		drained := m.drainAll()

		now := time.Now()
		if now.Sub(m.lastPublish) >= m.cfg.PublishEvery {
			m.cfg.Canvas.Publish()
			m.lastPublish = now
		}

		if drained == 0 {
			wait := bo.NextBackOff()
			time.Sleep(wait)
		} else {
			bo.Reset()
		}
	}
}

// drainAll pops up to DrainBatch entries from each worker's queue in turn
// and applies them, returning the total entries merged this pass.
func (m *Master) drainAll() int {
	total := 0
	for _, q := range m.cfg.FromWorkers {
		for i := 0; i < m.cfg.DrainBatch; i++ {
			entry, ok := q.Pop()
			if !ok {
				break
			}
			m.cfg.Canvas.Apply([]codec.DiffEntry{entry})
			total++
		}
	}
	return total
}
