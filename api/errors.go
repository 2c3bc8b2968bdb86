package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps a domain error to its HTTP status and client-facing message.
// Internal errors are reported without detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, envelope.ErrDecryption):
		return http.StatusUnauthorized, envelope.ErrDecryption.Error()
	case errors.Is(err, envelope.ErrInvalidInput),
		errors.Is(err, envelope.ErrMalformedEnvelope),
		errors.Is(err, storage.ErrInvalidReference),
		errors.Is(err, storage.ErrEmptyPayload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, document.ErrInvalidPackage),
		errors.Is(err, document.ErrNotEncrypted):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, storage.ErrPublishFailed):
		return http.StatusBadGateway, "ledger rejected the document"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFromContext(r.Context()),
			"error", err)
	}
	writeError(w, status, msg)
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
