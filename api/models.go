package api

import (
	"encoding/json"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/password"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// EncryptRequest asks for content to be sealed under password. Iterations
// and Version override the server defaults when set.
type EncryptRequest struct {
	Content    string `json:"content"`
	Password   string `json:"password"`
	Iterations int    `json:"iterations,omitempty"`
	Version    string `json:"version,omitempty"`
}

// DecryptRequest carries an envelope exactly as produced by encrypt.
type DecryptRequest struct {
	Envelope json.RawMessage `json:"envelope"`
	Password string          `json:"password"`
}

// DecryptResponse holds recovered content.
type DecryptResponse struct {
	Content string `json:"content"`
}

// StrengthRequest is the body of POST /passwords/strength.
type StrengthRequest struct {
	Password string `json:"password"`
}

// GeneratedPasswordResponse is a fresh password with its report.
type GeneratedPasswordResponse struct {
	Password string `json:"password"`
	password.StrengthReport
}

// PublishRequest is the body of POST /documents. Without a password the
// document is published in the clear.
type PublishRequest struct {
	Content     string   `json:"content"`
	Password    string   `json:"password,omitempty"`
	Title       string   `json:"title,omitempty"`
	Author      string   `json:"author,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Category    string   `json:"category,omitempty"`
	BudgetUSD   float64  `json:"budget_usd,omitempty"`
}

// DocumentListResponse is a page of ledger references.
type DocumentListResponse struct {
	Documents []string `json:"documents"`
	PaginationMeta
}

// DocumentResponse is a published package as stored, plus its explorer link.
type DocumentResponse struct {
	Ref         string            `json:"ref"`
	ExplorerURL string            `json:"explorer_url,omitempty"`
	Package     *document.Package `json:"package"`
}

// UnlockRequest is the body of POST /documents/{ref}/unlock.
type UnlockRequest struct {
	Password string `json:"password"`
}

// UnlockResponse is an opened document.
type UnlockResponse struct {
	Ref     string `json:"ref"`
	Content string `json:"content"`
}
