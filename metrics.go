package canvas

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the broadcast-tick latency histogram buckets in
// nanoseconds. Buckets cover from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks server-wide operational statistics across all workers.
type Metrics struct {
	// Pixel submission counters.
	PixelsAccepted         atomic.Uint64
	PixelsRejectedDecode   atomic.Uint64
	PixelsRejectedCooldown atomic.Uint64
	PixelsMergeDropped     atomic.Uint64

	// Broadcast/snapshot counters.
	BroadcastsSent atomic.Uint64
	SnapshotsSent  atomic.Uint64
	BroadcastBytes atomic.Uint64

	// Connection lifecycle counters.
	ConnectionsAccepted atomic.Uint64
	ConnectionsRejected atomic.Uint64
	ConnectionsClosed   atomic.Uint64
	ConnectionsEvicted  atomic.Uint64

	// Broadcast-tick latency tracking.
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts); bucket[i] holds the
	// count of ticks with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordPixelAccepted records a pixel write admitted into the merge pipeline.
func (m *Metrics) RecordPixelAccepted() {
	m.PixelsAccepted.Add(1)
}

// RecordPixelRejectedDecode records a pixel submission that failed to decode.
func (m *Metrics) RecordPixelRejectedDecode() {
	m.PixelsRejectedDecode.Add(1)
}

// RecordPixelRejectedCooldown records a pixel submission dropped by the
// cooldown wheel.
func (m *Metrics) RecordPixelRejectedCooldown() {
	m.PixelsRejectedCooldown.Add(1)
}

// RecordPixelMergeDropped records an accepted pixel write that could not be
// forwarded because the worker's queue to the master was full.
func (m *Metrics) RecordPixelMergeDropped() {
	m.PixelsMergeDropped.Add(1)
}

// RecordBroadcast records one diff broadcast tick, including its latency
// and the bytes written across all connections reached.
func (m *Metrics) RecordBroadcast(bytes uint64, latencyNs uint64) {
	m.BroadcastsSent.Add(1)
	m.BroadcastBytes.Add(bytes)
	m.recordLatency(latencyNs)
}

// RecordSnapshot records one full RLE snapshot sent to a newly joined or
// resynced connection.
func (m *Metrics) RecordSnapshot(bytes uint64) {
	m.SnapshotsSent.Add(1)
	m.BroadcastBytes.Add(bytes)
}

// RecordConnectionAccepted records a newly admitted connection.
func (m *Metrics) RecordConnectionAccepted() {
	m.ConnectionsAccepted.Add(1)
}

// RecordConnectionRejected records a connection refused at capacity.
func (m *Metrics) RecordConnectionRejected() {
	m.ConnectionsRejected.Add(1)
}

// RecordConnectionClosed records a connection that closed normally.
func (m *Metrics) RecordConnectionClosed() {
	m.ConnectionsClosed.Add(1)
}

// RecordConnectionEvicted records a connection closed for idling out.
func (m *Metrics) RecordConnectionEvicted() {
	m.ConnectionsEvicted.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the server as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	PixelsAccepted         uint64
	PixelsRejectedDecode   uint64
	PixelsRejectedCooldown uint64
	PixelsMergeDropped     uint64

	BroadcastsSent uint64
	SnapshotsSent  uint64
	BroadcastBytes uint64

	ConnectionsAccepted uint64
	ConnectionsRejected uint64
	ConnectionsClosed   uint64
	ConnectionsEvicted  uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	PixelsPerSecond      float64
	BroadcastsPerSecond  float64
	TotalPixelsSubmitted uint64
	RejectRate           float64
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		PixelsAccepted:         m.PixelsAccepted.Load(),
		PixelsRejectedDecode:   m.PixelsRejectedDecode.Load(),
		PixelsRejectedCooldown: m.PixelsRejectedCooldown.Load(),
		PixelsMergeDropped:     m.PixelsMergeDropped.Load(),
		BroadcastsSent:         m.BroadcastsSent.Load(),
		SnapshotsSent:          m.SnapshotsSent.Load(),
		BroadcastBytes:         m.BroadcastBytes.Load(),
		ConnectionsAccepted:    m.ConnectionsAccepted.Load(),
		ConnectionsRejected:    m.ConnectionsRejected.Load(),
		ConnectionsClosed:      m.ConnectionsClosed.Load(),
		ConnectionsEvicted:     m.ConnectionsEvicted.Load(),
	}

	snap.TotalPixelsSubmitted = snap.PixelsAccepted + snap.PixelsRejectedDecode + snap.PixelsRejectedCooldown

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.PixelsPerSecond = float64(snap.TotalPixelsSubmitted) / uptimeSeconds
		snap.BroadcastsPerSecond = float64(snap.BroadcastsSent) / uptimeSeconds
	}

	if snap.TotalPixelsSubmitted > 0 {
		rejected := snap.PixelsRejectedDecode + snap.PixelsRejectedCooldown
		snap.RejectRate = float64(rejected) / float64(snap.TotalPixelsSubmitted) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset resets all metrics counters. Useful for testing.
func (m *Metrics) Reset() {
	m.PixelsAccepted.Store(0)
	m.PixelsRejectedDecode.Store(0)
	m.PixelsRejectedCooldown.Store(0)
	m.PixelsMergeDropped.Store(0)
	m.BroadcastsSent.Store(0)
	m.SnapshotsSent.Store(0)
	m.BroadcastBytes.Store(0)
	m.ConnectionsAccepted.Store(0)
	m.ConnectionsRejected.Store(0)
	m.ConnectionsClosed.Store(0)
	m.ConnectionsEvicted.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, independent of the built-in
// Metrics type.
type Observer interface {
	ObservePixelAccepted()
	ObservePixelRejectedDecode()
	ObservePixelRejectedCooldown()
	ObservePixelMergeDropped()
	ObserveBroadcast(bytes uint64, latencyNs uint64)
	ObserveSnapshot(bytes uint64)
	ObserveConnectionAccepted()
	ObserveConnectionRejected()
	ObserveConnectionClosed()
	ObserveConnectionEvicted()
}

// NoOpObserver is a no-op implementation of Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObservePixelAccepted()               {}
func (NoOpObserver) ObservePixelRejectedDecode()          {}
func (NoOpObserver) ObservePixelRejectedCooldown()        {}
func (NoOpObserver) ObservePixelMergeDropped()            {}
func (NoOpObserver) ObserveBroadcast(uint64, uint64)      {}
func (NoOpObserver) ObserveSnapshot(uint64)               {}
func (NoOpObserver) ObserveConnectionAccepted()           {}
func (NoOpObserver) ObserveConnectionRejected()           {}
func (NoOpObserver) ObserveConnectionClosed()             {}
func (NoOpObserver) ObserveConnectionEvicted()            {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObservePixelAccepted()        { o.metrics.RecordPixelAccepted() }
func (o *MetricsObserver) ObservePixelRejectedDecode()   { o.metrics.RecordPixelRejectedDecode() }
func (o *MetricsObserver) ObservePixelRejectedCooldown() { o.metrics.RecordPixelRejectedCooldown() }
func (o *MetricsObserver) ObservePixelMergeDropped()     { o.metrics.RecordPixelMergeDropped() }
func (o *MetricsObserver) ObserveBroadcast(bytes uint64, latencyNs uint64) {
	o.metrics.RecordBroadcast(bytes, latencyNs)
}
func (o *MetricsObserver) ObserveSnapshot(bytes uint64)    { o.metrics.RecordSnapshot(bytes) }
func (o *MetricsObserver) ObserveConnectionAccepted()      { o.metrics.RecordConnectionAccepted() }
func (o *MetricsObserver) ObserveConnectionRejected()      { o.metrics.RecordConnectionRejected() }
func (o *MetricsObserver) ObserveConnectionClosed()        { o.metrics.RecordConnectionClosed() }
func (o *MetricsObserver) ObserveConnectionEvicted()       { o.metrics.RecordConnectionEvicted() }

// Compile-time interface checks.
var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
