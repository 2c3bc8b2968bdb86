package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditEnvelopeEncrypted AuditEvent = "envelope_encrypted"
	AuditEnvelopeDecrypted AuditEvent = "envelope_decrypted"
	AuditDecryptFailure    AuditEvent = "decrypt_failure"
	AuditRateLimited       AuditEvent = "rate_limited"
	AuditDocumentPublished AuditEvent = "document_published"
	AuditDocumentUnlocked  AuditEvent = "document_unlocked"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// Passwords and document content never reach it.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
	webhook *auditWebhook
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry and forwards it to the webhook
// when one is configured.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	now := time.Now().UTC()
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", now.Format(time.RFC3339)),
	}
	if id := requestIDFromContext(r.Context()); id != "" {
		baseAttrs = append(baseAttrs, slog.String("request_id", id))
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
	if al.webhook != nil {
		al.webhook.enqueue(newWebhookEvent(event, r.RemoteAddr, now, attrs))
	}
}

// logEvent is a convenience for events concerning one ledger reference.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, ref string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("ref", ref),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a failed decryption or a throttled request.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
