package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertDecryptFailureSpike AlertType = "decrypt_failure_spike"
	AlertRateLimitSpike      AlertType = "rate_limit_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	decryptFailures  []time.Time
	decryptWindow    time.Duration
	decryptThreshold int

	throttled         []time.Time
	throttleWindow    time.Duration
	throttleThreshold int

	alertFn AlertFunc
}

const (
	defaultDecryptFailureWindow    = 1 * time.Minute
	defaultDecryptFailureThreshold = 50
	defaultThrottleWindow          = 5 * time.Minute
	defaultThrottleThreshold       = 100
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		decryptWindow:     defaultDecryptFailureWindow,
		decryptThreshold:  defaultDecryptFailureThreshold,
		throttleWindow:    defaultThrottleWindow,
		throttleThreshold: defaultThrottleThreshold,
		alertFn:           alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditDecryptFailure:
		m.record(&m.decryptFailures, m.decryptWindow, m.decryptThreshold,
			AlertDecryptFailureSpike, "decryption failure rate exceeds threshold")
	case AuditRateLimited:
		m.record(&m.throttled, m.throttleWindow, m.throttleThreshold,
			AlertRateLimitSpike, "throttled request rate exceeds threshold")
	}
}

func (m *metricsCollector) record(window *[]time.Time, span time.Duration, threshold int, typ AlertType, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	*window = append(*window, now)
	*window = trimWindow(*window, now, span)

	if len(*window) >= threshold {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     len(*window),
			Threshold: threshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		*window = (*window)[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
