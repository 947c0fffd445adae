package canvas

import "github.com/prometheus/client_golang/prometheus"

// PrometheusObserver implements Observer by feeding a set of Prometheus
// collectors directly, in addition to (or instead of) the built-in Metrics
// histogram.
type PrometheusObserver struct {
	pixelsAccepted         prometheus.Counter
	pixelsRejectedDecode   prometheus.Counter
	pixelsRejectedCooldown prometheus.Counter
	pixelsMergeDropped     prometheus.Counter

	broadcastsSent prometheus.Counter
	snapshotsSent  prometheus.Counter
	broadcastBytes prometheus.Counter
	tickLatency    prometheus.Histogram

	connectionsAccepted prometheus.Counter
	connectionsRejected prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsEvicted  prometheus.Counter
}

// NewPrometheusObserver registers a fresh set of collectors under reg and
// returns an Observer backed by them.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		pixelsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_pixels_accepted_total",
			Help: "Pixel writes admitted into the merge pipeline.",
		}),
		pixelsRejectedDecode: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_pixels_rejected_decode_total",
			Help: "Pixel submissions that failed to decode.",
		}),
		pixelsRejectedCooldown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_pixels_rejected_cooldown_total",
			Help: "Pixel submissions dropped by the cooldown wheel.",
		}),
		pixelsMergeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_pixels_merge_dropped_total",
			Help: "Accepted writes dropped because the worker-to-master queue was full.",
		}),
		broadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_broadcasts_sent_total",
			Help: "Diff broadcast ticks sent across all workers.",
		}),
		snapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_snapshots_sent_total",
			Help: "Full RLE snapshots sent to joining or resynced connections.",
		}),
		broadcastBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_broadcast_bytes_total",
			Help: "Bytes written to connections across broadcasts and snapshots.",
		}),
		tickLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "canvas_broadcast_tick_latency_seconds",
			Help:    "Latency of one broadcast tick.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_connections_accepted_total",
			Help: "Connections admitted.",
		}),
		connectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_connections_rejected_total",
			Help: "Connections refused at capacity.",
		}),
		connectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_connections_closed_total",
			Help: "Connections that closed normally.",
		}),
		connectionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "canvas_connections_evicted_total",
			Help: "Connections closed for idling out.",
		}),
	}

	reg.MustRegister(
		o.pixelsAccepted, o.pixelsRejectedDecode, o.pixelsRejectedCooldown, o.pixelsMergeDropped,
		o.broadcastsSent, o.snapshotsSent, o.broadcastBytes, o.tickLatency,
		o.connectionsAccepted, o.connectionsRejected, o.connectionsClosed, o.connectionsEvicted,
	)
	return o
}

func (o *PrometheusObserver) ObservePixelAccepted()        { o.pixelsAccepted.Inc() }
func (o *PrometheusObserver) ObservePixelRejectedDecode()   { o.pixelsRejectedDecode.Inc() }
func (o *PrometheusObserver) ObservePixelRejectedCooldown() { o.pixelsRejectedCooldown.Inc() }
func (o *PrometheusObserver) ObservePixelMergeDropped()     { o.pixelsMergeDropped.Inc() }

func (o *PrometheusObserver) ObserveBroadcast(bytes uint64, latencyNs uint64) {
	o.broadcastsSent.Inc()
	o.broadcastBytes.Add(float64(bytes))
	o.tickLatency.Observe(float64(latencyNs) / 1e9)
}

func (o *PrometheusObserver) ObserveSnapshot(bytes uint64) {
	o.snapshotsSent.Inc()
	o.broadcastBytes.Add(float64(bytes))
}

func (o *PrometheusObserver) ObserveConnectionAccepted() { o.connectionsAccepted.Inc() }
func (o *PrometheusObserver) ObserveConnectionRejected() { o.connectionsRejected.Inc() }
func (o *PrometheusObserver) ObserveConnectionClosed()   { o.connectionsClosed.Inc() }
func (o *PrometheusObserver) ObserveConnectionEvicted()  { o.connectionsEvicted.Inc() }

var _ Observer = (*PrometheusObserver)(nil)
