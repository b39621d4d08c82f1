package authgate

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricLogoutAll
	MetricAuthenticateSuccess
	MetricAuthenticateFailure

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:        "login_success",
	MetricLoginFailure:        "login_failure",
	MetricLoginRateLimited:    "login_rate_limited",
	MetricRefreshSuccess:      "refresh_success",
	MetricRefreshFailure:      "refresh_failure",
	MetricLogout:              "logout",
	MetricLogoutAll:           "logout_all",
	MetricAuthenticateSuccess: "authenticate_success",
	MetricAuthenticateFailure: "authenticate_failure",
}

// String returns the stable snake_case name of the counter.
func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics holds lock-free counters for engine operations. A disabled
// Metrics value keeps every operation a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

func newMetrics(enabled bool) *Metrics {
	return &Metrics{enabled: enabled}
}

func (m *Metrics) inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies all counters keyed by name.
func (m *Metrics) Snapshot() map[string]uint64 {
	out := make(map[string]uint64, metricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id.String()] = m.counters[id].Load()
	}
	return out
}
