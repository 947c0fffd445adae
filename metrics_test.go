package canvas

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.TotalPixelsSubmitted != 0 {
		t.Errorf("Expected 0 initial submissions, got %d", snap.TotalPixelsSubmitted)
	}

	m.RecordPixelAccepted()
	m.RecordPixelAccepted()
	m.RecordPixelRejectedCooldown()
	m.RecordPixelRejectedDecode()

	snap = m.Snapshot()
	if snap.PixelsAccepted != 2 {
		t.Errorf("Expected 2 accepted, got %d", snap.PixelsAccepted)
	}
	if snap.PixelsRejectedCooldown != 1 {
		t.Errorf("Expected 1 cooldown rejection, got %d", snap.PixelsRejectedCooldown)
	}
	if snap.PixelsRejectedDecode != 1 {
		t.Errorf("Expected 1 decode rejection, got %d", snap.PixelsRejectedDecode)
	}
	if snap.TotalPixelsSubmitted != 4 {
		t.Errorf("Expected 4 total submissions, got %d", snap.TotalPixelsSubmitted)
	}

	expectedRejectRate := float64(2) / float64(4) * 100.0
	if snap.RejectRate < expectedRejectRate-0.1 || snap.RejectRate > expectedRejectRate+0.1 {
		t.Errorf("Expected reject rate ~%.1f%%, got %.1f%%", expectedRejectRate, snap.RejectRate)
	}
}

func TestMetricsBroadcastAndSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordBroadcast(512, 1_000_000) // 512 bytes, 1ms
	m.RecordSnapshot(125000)

	snap := m.Snapshot()
	if snap.BroadcastsSent != 1 {
		t.Errorf("Expected 1 broadcast, got %d", snap.BroadcastsSent)
	}
	if snap.SnapshotsSent != 1 {
		t.Errorf("Expected 1 snapshot, got %d", snap.SnapshotsSent)
	}
	if snap.BroadcastBytes != 512+125000 {
		t.Errorf("Expected %d broadcast bytes, got %d", 512+125000, snap.BroadcastBytes)
	}
}

func TestMetricsConnectionLifecycle(t *testing.T) {
	m := NewMetrics()

	m.RecordConnectionAccepted()
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed()
	m.RecordConnectionEvicted()
	m.RecordConnectionRejected()

	snap := m.Snapshot()
	if snap.ConnectionsAccepted != 2 {
		t.Errorf("Expected 2 accepted connections, got %d", snap.ConnectionsAccepted)
	}
	if snap.ConnectionsClosed != 1 {
		t.Errorf("Expected 1 closed connection, got %d", snap.ConnectionsClosed)
	}
	if snap.ConnectionsEvicted != 1 {
		t.Errorf("Expected 1 evicted connection, got %d", snap.ConnectionsEvicted)
	}
	if snap.ConnectionsRejected != 1 {
		t.Errorf("Expected 1 rejected connection, got %d", snap.ConnectionsRejected)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordBroadcast(0, 1_000_000) // 1ms
	m.RecordBroadcast(0, 2_000_000) // 2ms

	snap := m.Snapshot()
	expectedAvgNs := uint64(1500000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1000000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1000000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordPixelAccepted()
	m.RecordBroadcast(1024, 1_000_000)

	snap := m.Snapshot()
	if snap.TotalPixelsSubmitted == 0 {
		t.Error("Expected some submissions before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TotalPixelsSubmitted != 0 {
		t.Errorf("Expected 0 submissions after reset, got %d", snap.TotalPixelsSubmitted)
	}
	if snap.BroadcastBytes != 0 {
		t.Errorf("Expected 0 broadcast bytes after reset, got %d", snap.BroadcastBytes)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObservePixelAccepted()
	observer.ObserveBroadcast(1024, 1_000_000)
	observer.ObserveConnectionAccepted()

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObservePixelAccepted()
	metricsObserver.ObserveBroadcast(2048, 2_000_000)

	snap := m.Snapshot()
	if snap.PixelsAccepted != 1 {
		t.Errorf("Expected 1 accepted pixel from observer, got %d", snap.PixelsAccepted)
	}
	if snap.BroadcastsSent != 1 {
		t.Errorf("Expected 1 broadcast from observer, got %d", snap.BroadcastsSent)
	}
	if snap.BroadcastBytes != 2048 {
		t.Errorf("Expected 2048 broadcast bytes from observer, got %d", snap.BroadcastBytes)
	}
}

func TestMetricsRates(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordPixelAccepted()
	m.RecordBroadcast(0, 0)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()
	if snap.PixelsPerSecond < 0.9 || snap.PixelsPerSecond > 1.1 {
		t.Errorf("Expected PixelsPerSecond ~1.0, got %.2f", snap.PixelsPerSecond)
	}
	if snap.BroadcastsPerSecond < 0.9 || snap.BroadcastsPerSecond > 1.1 {
		t.Errorf("Expected BroadcastsPerSecond ~1.0, got %.2f", snap.BroadcastsPerSecond)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordBroadcast(0, 500_000) // 500us
	}
	for i := 0; i < 49; i++ {
		m.RecordBroadcast(0, 5_000_000) // 5ms
	}
	m.RecordBroadcast(0, 50_000_000) // 50ms, the single slowest tick

	snap := m.Snapshot()

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}

	if snap.LatencyP50Ns < 100_000 || snap.LatencyP50Ns > 1_000_000 {
		t.Errorf("Expected P50 in 100us-1ms range, got %d ns", snap.LatencyP50Ns)
	}
	if snap.LatencyP99Ns < 5_000_000 || snap.LatencyP99Ns > 100_000_000 {
		t.Errorf("Expected P99 in 5ms-100ms range, got %d ns", snap.LatencyP99Ns)
	}
}
