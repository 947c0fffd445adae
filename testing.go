package canvas

import "sync"

// RecordingObserver is an Observer that counts every call it receives,
// useful for asserting on metrics wiring in tests without a live Prometheus
// registry or the atomic-counter plumbing of MetricsObserver.
type RecordingObserver struct {
	mu sync.Mutex

	pixelsAccepted         int
	pixelsRejectedDecode   int
	pixelsRejectedCooldown int
	pixelsMergeDropped     int

	broadcasts     int
	broadcastBytes uint64
	snapshots      int
	snapshotBytes  uint64

	connectionsAccepted int
	connectionsRejected int
	connectionsClosed   int
	connectionsEvicted  int
}

// NewRecordingObserver creates a RecordingObserver with all counters at zero.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (o *RecordingObserver) ObservePixelAccepted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pixelsAccepted++
}

func (o *RecordingObserver) ObservePixelRejectedDecode() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pixelsRejectedDecode++
}

func (o *RecordingObserver) ObservePixelRejectedCooldown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pixelsRejectedCooldown++
}

func (o *RecordingObserver) ObservePixelMergeDropped() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pixelsMergeDropped++
}

func (o *RecordingObserver) ObserveBroadcast(bytes uint64, _ uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.broadcasts++
	o.broadcastBytes += bytes
}

func (o *RecordingObserver) ObserveSnapshot(bytes uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots++
	o.snapshotBytes += bytes
}

func (o *RecordingObserver) ObserveConnectionAccepted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectionsAccepted++
}

func (o *RecordingObserver) ObserveConnectionRejected() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectionsRejected++
}

func (o *RecordingObserver) ObserveConnectionClosed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectionsClosed++
}

func (o *RecordingObserver) ObserveConnectionEvicted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.connectionsEvicted++
}

// Counts returns a snapshot of every counter, keyed by the event name.
func (o *RecordingObserver) Counts() map[string]int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return map[string]int{
		"pixels_accepted":          o.pixelsAccepted,
		"pixels_rejected_decode":   o.pixelsRejectedDecode,
		"pixels_rejected_cooldown": o.pixelsRejectedCooldown,
		"pixels_merge_dropped":     o.pixelsMergeDropped,
		"broadcasts":               o.broadcasts,
		"snapshots":                o.snapshots,
		"connections_accepted":     o.connectionsAccepted,
		"connections_rejected":     o.connectionsRejected,
		"connections_closed":       o.connectionsClosed,
		"connections_evicted":      o.connectionsEvicted,
	}
}

// Reset zeroes every counter.
func (o *RecordingObserver) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o = RecordingObserver{}
}

// Compile-time interface check.
var _ Observer = (*RecordingObserver)(nil)
