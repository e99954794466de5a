package goToken

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by goToken APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricAccessIssued counts access tokens signed.
	MetricAccessIssued MetricID = iota
	// MetricRefreshIssued counts refresh tokens signed.
	MetricRefreshIssued
	// MetricIssueFailure counts issuance calls that returned an error.
	MetricIssueFailure
	// MetricIssueSerialization counts issuance failures caused by values
	// without a JSON form.
	MetricIssueSerialization
	// MetricHookFailure counts loader errors during issuance.
	MetricHookFailure
	// MetricDecodeSuccess counts tokens that passed every decode check.
	MetricDecodeSuccess
	// MetricDecodeMalformed counts structurally invalid tokens.
	MetricDecodeMalformed
	// MetricDecodeAlgorithmRejected counts tokens signed with another algorithm.
	MetricDecodeAlgorithmRejected
	// MetricDecodeInvalidSignature counts signature failures.
	MetricDecodeInvalidSignature
	// MetricDecodeExpired counts expired tokens.
	MetricDecodeExpired
	// MetricDecodeNotYetValid counts tokens presented before nbf.
	MetricDecodeNotYetValid
	// MetricDecodeClaimRejected counts identity/iss/aud policy failures.
	MetricDecodeClaimRejected
	// MetricDecodeWrongType counts access/refresh mix-ups.
	MetricDecodeWrongType
	// MetricDecodeFreshRequired counts non-fresh tokens where freshness was
	// required.
	MetricDecodeFreshRequired
	// MetricIssueLatency is the issuance latency histogram.
	MetricIssueLatency
	// MetricDecodeLatency is the decode latency histogram.
	MetricDecodeLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// HistogramBounds are the inclusive upper bounds of the latency buckets. The
// last bucket is unbounded.
var HistogramBounds = [histBucketCount - 1]time.Duration{
	25 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	250 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters and latency histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and, when enabled,
// the latency histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only the latency metrics carry
// histograms; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current counters and histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range [...]MetricID{MetricIssueLatency, MetricDecodeLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isHistogram(id MetricID) bool {
	return id == MetricIssueLatency || id == MetricDecodeLatency
}

func bucketIndex(d time.Duration) int {
	for i, bound := range HistogramBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
