package api

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
)

// defaultMaxBodyBytes bounds request bodies. Envelopes of a few hundred
// kilobytes of text fit comfortably.
const defaultMaxBodyBytes = 4 << 20

// API holds the dependencies needed by the REST handlers.
type API struct {
	service        *document.Service
	cipher         *envelope.Cipher
	audit          *auditLogger
	limiter        *clientLimiter
	sealLimiter    *clientLimiter
	failures       *failureLimiter
	metrics        *promMetrics
	trustedProxies []netip.Prefix
	maxBodyBytes   int64

	registry   *prometheus.Registry
	rps        rate.Limit
	burst      int
	alertFn    AlertFunc
	webhookURL string
	webhookHdr string
	logger     *slog.Logger
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithCipher sets the cipher used by the envelope endpoints when a request
// does not ask for its own iteration count or format version.
func WithCipher(c *envelope.Cipher) Option {
	return func(a *API) {
		a.cipher = c
	}
}

// WithRateLimit sets the per-client token buckets applied to every request
// that derives a key: decrypt and unlock share one, encrypt and publish
// another. A non-positive rps disables both.
func WithRateLimit(rps float64, burst int) Option {
	return func(a *API) {
		a.rps = rate.Limit(rps)
		a.burst = burst
	}
}

// WithTrustedProxies configures which reverse proxies are trusted to set
// X-Forwarded-For and similar headers. Entries are CIDRs or bare addresses.
func WithTrustedProxies(cidrs []string) (Option, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !strings.Contains(c, "/") {
			addr, err := netip.ParseAddr(c)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", c, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", c, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	return func(a *API) {
		a.trustedProxies = prefixes
	}, nil
}

// WithMetricsRegistry registers the API's Prometheus collectors with reg
// instead of a private registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(a *API) {
		a.registry = reg
	}
}

// WithAlertFunc sets the callback invoked when decryption failures spike.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// WithAuditWebhook forwards audit events to url. authHeader, if set, is a
// "Header: Value" pair added to every request.
func WithAuditWebhook(url, authHeader string) Option {
	return func(a *API) {
		a.webhookURL = url
		a.webhookHdr = authHeader
	}
}

// WithMaxBodyBytes bounds the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(a *API) {
		a.maxBodyBytes = n
	}
}

// New creates a new API instance serving svc.
func New(svc *document.Service, opts ...Option) (*API, error) {
	a := &API{
		service:      svc,
		maxBodyBytes: defaultMaxBodyBytes,
		rps:          defaultRPS,
		burst:        defaultBurst,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if a.cipher == nil {
		c, err := envelope.New()
		if err != nil {
			return nil, err
		}
		a.cipher = c
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}
	m, err := newPromMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	a.metrics = m

	a.audit = newAuditLogger(a.logger)
	a.audit.metrics = newMetricsCollector(a.alertFn)
	if a.webhookURL != "" {
		a.audit.webhook = newAuditWebhook(a.webhookURL, a.webhookHdr)
	}
	if a.rps > 0 {
		a.limiter = newClientLimiter(a.rps, a.burst)
		a.sealLimiter = newClientLimiter(a.rps, a.burst)
	}
	a.failures = newFailureLimiter()
	return a, nil
}

// Close flushes pending audit webhook deliveries.
func (a *API) Close() {
	if a.audit != nil && a.audit.webhook != nil {
		a.audit.webhook.close()
	}
}

// MetricsHandler serves the API's Prometheus collectors.
func (a *API) MetricsHandler() http.Handler {
	return a.metrics.handler(a.registry)
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.limitBody)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Route("/envelopes", func(r chi.Router) {
		r.With(a.limitSeal).Post("/encrypt", a.Encrypt)
		r.With(a.throttle).Post("/decrypt", a.Decrypt)
	})

	r.Route("/passwords", func(r chi.Router) {
		r.Post("/strength", a.PasswordStrength)
		r.Get("/generate", a.GeneratePassword)
	})

	r.Route("/documents", func(r chi.Router) {
		r.With(a.limitSeal).Post("/", a.PublishDocument)
		r.Get("/", a.ListDocuments)
		r.Get("/{ref}", a.GetDocument)
		r.With(a.throttle).Post("/{ref}/unlock", a.UnlockDocument)
	})

	r.Get("/quotes", a.GetQuote)

	return r
}
