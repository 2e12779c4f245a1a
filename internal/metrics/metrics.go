package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes one counter or histogram slot.
type MetricID int

const (
	MetricSessionIssued MetricID = iota
	MetricAuthSuccess
	MetricAuthReject
	MetricRefreshRotation
	MetricRefreshRace
	MetricSessionEvicted
	MetricLogout
	MetricSocketAccepted
	MetricSocketRejected
	MetricSocketEvicted
	MetricMessageDispatched
	MetricMessageRejected
	MetricStoreUnavailable
	MetricAuthenticateLatency

	// MetricIDCount is the number of defined metric IDs.
	MetricIDCount
)

// HistogramBuckets is the fixed latency bucket count: ≤5ms, ≤10ms, ≤25ms,
// ≤50ms, ≤100ms, ≤250ms, ≤500ms, +Inf.
const HistogramBuckets = 8

var bucketBounds = [HistogramBuckets - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

// paddedCounter keeps each slot on its own cache line to avoid false
// sharing between hot-path goroutines.
type paddedCounter struct {
	value uint64
	_     [7]uint64
}

// Config controls metric collection. When Enabled is false every operation
// is a no-op.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds the counter and histogram slots. Safe for concurrent use.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount][HistogramBuckets]paddedCounter
}

// New creates a [Metrics] instance per cfg.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample into id's histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id < 0 || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.histograms[id][bucketFor(d)].value, 1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id < 0 || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func bucketFor(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d <= bound {
			return i
		}
	}
	return HistogramBuckets - 1
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot copies every populated slot. Counters and histograms that never
// fired are omitted.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Counters:   make(map[MetricID]uint64, MetricIDCount),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return snap
	}

	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := atomic.LoadUint64(&m.counters[id].value); v > 0 {
			snap.Counters[id] = v
		}
	}

	if m.enableLatency {
		for id := MetricID(0); id < MetricIDCount; id++ {
			var total uint64
			buckets := make([]uint64, HistogramBuckets)
			for b := 0; b < HistogramBuckets; b++ {
				buckets[b] = atomic.LoadUint64(&m.histograms[id][b].value)
				total += buckets[b]
			}
			if total > 0 {
				snap.Histograms[id] = buckets
			}
		}
	}

	return snap
}
