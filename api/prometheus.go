package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/storage"
)

const (
	opEncrypt = "encrypt"
	opDecrypt = "decrypt"
	opUnlock  = "unlock"
)

// promMetrics holds the API's Prometheus collectors. A nil *promMetrics
// records nothing.
type promMetrics struct {
	envelopeOps *prometheus.CounterVec
	kdfSeconds  *prometheus.HistogramVec
	publishes   *prometheus.CounterVec
	throttled   *prometheus.CounterVec
}

func newPromMetrics(reg prometheus.Registerer) (*promMetrics, error) {
	m := &promMetrics{
		envelopeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkseal",
			Name:      "envelope_operations_total",
			Help:      "Envelope operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		kdfSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inkseal",
			Name:      "envelope_duration_seconds",
			Help:      "Time spent sealing or opening envelopes, key derivation included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkseal",
			Name:      "documents_published_total",
			Help:      "Document publish attempts by encryption and result.",
		}, []string{"encrypted", "result"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inkseal",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client limiters.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{m.envelopeOps, m.kdfSeconds, m.publishes, m.throttled} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *promMetrics) handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// outcome classifies an envelope error into a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, envelope.ErrDecryption):
		return "decryption_failed"
	case errors.Is(err, envelope.ErrMalformedEnvelope),
		errors.Is(err, document.ErrInvalidPackage),
		errors.Is(err, document.ErrNotEncrypted):
		return "malformed"
	case errors.Is(err, envelope.ErrInvalidInput),
		errors.Is(err, storage.ErrInvalidReference):
		return "invalid_input"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (m *promMetrics) envelopeOp(op string, err error) {
	if m == nil {
		return
	}
	m.envelopeOps.WithLabelValues(op, outcome(err)).Inc()
}

func (m *promMetrics) observeKDF(op string, start time.Time) {
	if m == nil {
		return
	}
	m.kdfSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *promMetrics) published(encrypted, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.publishes.WithLabelValues(strconv.FormatBool(encrypted), result).Inc()
}

func (m *promMetrics) rateLimited(reason string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(reason).Inc()
}
