package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecryptFailureSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	// Override threshold for fast testing.
	collector.decryptThreshold = 5

	// Below threshold, no alert.
	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditDecryptFailure)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	// The 5th failure should trigger an alert.
	collector.recordEvent(AuditDecryptFailure)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDecryptFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	mu.Unlock()
}

func TestRateLimitSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.throttleThreshold = 3

	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditRateLimited)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	collector.recordEvent(AuditRateLimited)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRateLimitSpike, alerts[0].Type)
	assert.Equal(t, 3, alerts[0].Count)
	mu.Unlock()
}

func TestMetricsNoAlertWithoutCallback(t *testing.T) {
	// A nil alertFn should not panic.
	collector := newMetricsCollector(nil)
	collector.recordEvent(AuditDecryptFailure)
	// Should not panic.
}

func TestMetricsNilCollector(t *testing.T) {
	// A nil collector should not panic.
	var collector *metricsCollector
	collector.recordEvent(AuditDecryptFailure)
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.decryptThreshold = 5
	collector.decryptWindow = 100 * time.Millisecond

	// Record 4 failures.
	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditDecryptFailure)
	}

	// Wait for them to slide out of the window.
	time.Sleep(150 * time.Millisecond)

	// Old failures have expired, so one more does not alert.
	collector.recordEvent(AuditDecryptFailure)
	mu.Lock()
	assert.Empty(t, alerts, "old failures should not count after window expiry")
	mu.Unlock()
}

func TestMetricsResetAfterAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.decryptThreshold = 3

	// Trigger first alert.
	for i := 0; i < 3; i++ {
		collector.recordEvent(AuditDecryptFailure)
	}
	mu.Lock()
	require.Len(t, alerts, 1, "first alert triggered")
	mu.Unlock()

	// Counter was reset; three more are needed.
	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditDecryptFailure)
	}
	mu.Lock()
	assert.Len(t, alerts, 1, "no second alert yet")
	mu.Unlock()

	collector.recordEvent(AuditDecryptFailure)
	mu.Lock()
	assert.Len(t, alerts, 2, "second alert triggered")
	mu.Unlock()
}
