package authclient

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful password logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed password logins, validation included.
	MetricLoginFailure
	// MetricGoogleLoginSuccess counts successful Google credential exchanges.
	MetricGoogleLoginSuccess
	// MetricGoogleLoginFailure counts failed Google credential exchanges.
	MetricGoogleLoginFailure
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts failed registrations.
	MetricRegisterFailure
	// MetricAdminLoginSuccess counts successful admin logins.
	MetricAdminLoginSuccess
	// MetricAdminLoginFailure counts failed admin logins.
	MetricAdminLoginFailure
	// MetricLogout counts logout operations.
	MetricLogout
	// MetricVerifySuccess counts liveness checks the server answered.
	MetricVerifySuccess
	// MetricVerifyFailure counts liveness checks that failed transiently.
	MetricVerifyFailure
	// MetricRefreshSuccess counts successful credential refreshes.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed credential refreshes.
	MetricRefreshFailure
	// MetricSessionInvalidated counts authoritative local invalidations.
	MetricSessionInvalidated
	// MetricSnapshotRestored counts startups that restored a snapshot.
	MetricSnapshotRestored
	// MetricSnapshotCorrupt counts discarded unreadable snapshots.
	MetricSnapshotCorrupt
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds atomic counters for session operation outcomes. When
// disabled, all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments one counter. Safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter. Disabled metrics yield an empty map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
