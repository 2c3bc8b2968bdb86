package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/inkseal/crypto"
	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/password"
)

// cipherFor returns the server cipher, or a derived one when the request
// overrides the iteration count or format version.
func (a *API) cipherFor(iterations int, version string) (*envelope.Cipher, error) {
	if iterations == 0 && version == "" {
		return a.cipher, nil
	}
	if limit := a.maxRequestIterations(); iterations > limit {
		return nil, fmt.Errorf("%w: iterations must not exceed %d", envelope.ErrInvalidInput, limit)
	}
	opts := []envelope.Option{
		envelope.WithIterations(a.cipher.Iterations()),
		envelope.WithFormatVersion(a.cipher.Version()),
	}
	if iterations != 0 {
		opts = append(opts, envelope.WithIterations(iterations))
	}
	if version != "" {
		opts = append(opts, envelope.WithFormatVersion(version))
	}
	return envelope.New(opts...)
}

// maxRequestIterations caps the iteration count a request may ask for: the
// sensitive profile, or the server's own count when that is higher.
func (a *API) maxRequestIterations() int {
	return max(crypto.SensitiveIterations, a.cipher.Iterations())
}

// Encrypt seals content under a password and returns the envelope.
func (a *API) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := a.cipherFor(req.Iterations, req.Version)
	if err != nil {
		a.metrics.envelopeOp(opEncrypt, err)
		a.mapError(w, r, err)
		return
	}

	start := time.Now()
	env, err := c.Encrypt(req.Content, req.Password)
	a.metrics.observeKDF(opEncrypt, start)
	a.metrics.envelopeOp(opEncrypt, err)
	if err != nil {
		a.mapError(w, r, err)
		return
	}

	a.audit.log(AuditEnvelopeEncrypted, r,
		slog.String("version", env.Version),
		slog.Int("iterations", env.Iterations))
	writeJSON(w, http.StatusOK, env)
}

// Decrypt opens an envelope with a password.
func (a *API) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Envelope) == 0 {
		err := fmt.Errorf("%w: missing envelope", envelope.ErrMalformedEnvelope)
		a.metrics.envelopeOp(opDecrypt, err)
		a.mapError(w, r, err)
		return
	}
	env, err := envelope.Parse(req.Envelope)
	if err != nil {
		a.metrics.envelopeOp(opDecrypt, err)
		a.mapError(w, r, err)
		return
	}

	start := time.Now()
	content, err := a.cipher.Decrypt(env, req.Password)
	a.metrics.observeKDF(opDecrypt, start)
	a.metrics.envelopeOp(opDecrypt, err)
	if err != nil {
		a.recordUnlockFailure(r, err, "")
		a.mapError(w, r, err)
		return
	}
	a.failures.recordSuccess(a.extractClientIP(r))
	a.audit.log(AuditEnvelopeDecrypted, r, slog.String("version", env.Version))

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, DecryptResponse{Content: content})
}

// recordUnlockFailure counts a wrong password against the client and audits
// it. Other errors are not the client guessing and are ignored here.
func (a *API) recordUnlockFailure(r *http.Request, err error, ref string) {
	if !errors.Is(err, envelope.ErrDecryption) {
		return
	}
	a.failures.recordFailure(a.extractClientIP(r))
	attrs := []slog.Attr{}
	if ref != "" {
		attrs = append(attrs, slog.String("ref", ref))
	}
	a.audit.logFailure(AuditDecryptFailure, r, "invalid password or corrupted data", attrs...)
}

// PasswordStrength scores a candidate password.
func (a *API) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req StrengthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, password.CheckPasswordStrength(req.Password))
}

// GeneratePassword returns a fresh strong password.
func (a *API) GeneratePassword(w http.ResponseWriter, r *http.Request) {
	pw, err := password.GeneratePassword()
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, GeneratedPasswordResponse{
		Password:       pw,
		StrengthReport: password.CheckPasswordStrength(pw),
	})
}

// PublishDocument packages a document, sealing it when a password is given,
// and publishes it to the ledger.
func (a *API) PublishDocument(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.BudgetUSD < 0 {
		writeError(w, http.StatusBadRequest, "budget_usd must not be negative")
		return
	}

	encrypted := req.Password != ""
	res, err := a.service.Publish(r.Context(), req.Content, document.PublishOptions{
		Metadata: document.Metadata{
			Title:       req.Title,
			Author:      req.Author,
			Description: req.Description,
			Tags:        req.Tags,
			Category:    req.Category,
		},
		Password:  req.Password,
		BudgetUSD: req.BudgetUSD,
	})
	if err != nil {
		a.metrics.published(encrypted, false)
		a.mapError(w, r, err)
		return
	}
	a.metrics.published(encrypted, true)
	a.audit.logEvent(AuditDocumentPublished, r, res.TransactionID,
		slog.Bool("encrypted", encrypted),
		slog.Int64("total_sats", res.Quote.TotalSats))
	writeJSON(w, http.StatusCreated, res)
}

// ListDocuments returns a page of ledger references in publish order.
func (a *API) ListDocuments(w http.ResponseWriter, r *http.Request) {
	refs, err := a.service.List(r.Context())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	limit, offset := parsePagination(r)
	start, end, meta := paginateSlice(len(refs), limit, offset)
	page := refs[start:end]
	if page == nil {
		page = []string{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{
		Documents:      page,
		PaginationMeta: meta,
	})
}

// GetDocument returns a published package. Encrypted packages stay sealed.
func (a *API) GetDocument(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	pkg, err := a.service.Retrieve(r.Context(), ref)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentResponse{
		Ref:         ref,
		ExplorerURL: a.service.ExplorerURL(ref),
		Package:     pkg,
	})
}

// UnlockDocument opens a published package with a password.
func (a *API) UnlockDocument(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	var req UnlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	content, err := a.service.Unlock(r.Context(), ref, req.Password)
	a.metrics.observeKDF(opUnlock, start)
	a.metrics.envelopeOp(opUnlock, err)
	if err != nil {
		a.recordUnlockFailure(r, err, ref)
		a.mapError(w, r, err)
		return
	}
	a.failures.recordSuccess(a.extractClientIP(r))
	a.audit.logEvent(AuditDocumentUnlocked, r, ref)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, UnlockResponse{Ref: ref, Content: content})
}

// GetQuote prices a document of the given word count.
func (a *API) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	words, err := strconv.Atoi(q.Get("words"))
	if err != nil || words < 0 {
		writeError(w, http.StatusBadRequest, "words must be a non-negative integer")
		return
	}
	encrypted := false
	if v := q.Get("encrypted"); v != "" {
		encrypted, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "encrypted must be a boolean")
			return
		}
	}
	budget := 0.0
	if v := q.Get("budget"); v != "" {
		budget, err = strconv.ParseFloat(v, 64)
		if err != nil || budget < 0 || math.IsInf(budget, 0) || math.IsNaN(budget) {
			writeError(w, http.StatusBadRequest, "budget must be a non-negative number")
			return
		}
	}

	writeJSON(w, http.StatusOK, document.Quote(words, encrypted, budget, a.service.Rates()))
}
