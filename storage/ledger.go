// Package storage provides the publishing abstraction for sealed document
// packages. A Ledger stores opaque payloads append-only and hands back a
// transaction-style reference that retrieves them later.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmcleod/inkseal/internal/util"
)

var (
	// ErrNotFound is returned when no payload exists for a reference.
	ErrNotFound = errors.New("reference not found")

	// ErrEmptyPayload is returned when Publish is called without data.
	ErrEmptyPayload = errors.New("payload is empty")

	// ErrPublishFailed is returned when a backend accepted the request but
	// did not produce a reference.
	ErrPublishFailed = errors.New("publish failed")

	// ErrInvalidReference is returned for references that are not 64 hex
	// characters.
	ErrInvalidReference = errors.New("invalid reference")
)

// ReferenceSize is the byte length of a reference before hex encoding.
const ReferenceSize = 32

// Receipt describes a successful publish.
type Receipt struct {
	Ref       string    `json:"ref"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// Ledger stores payloads append-only. Implementations must be safe for
// concurrent use and must never overwrite a published reference.
type Ledger interface {
	Publish(ctx context.Context, data []byte) (*Receipt, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

// NewReference returns a random txid-shaped reference.
func NewReference() (string, error) {
	b, err := util.RandomBytes(ReferenceSize)
	if err != nil {
		return "", fmt.Errorf("generating reference: %w", err)
	}
	return util.HexEncode(b), nil
}

// ValidateReference checks that ref is 64 lowercase or uppercase hex characters.
func ValidateReference(ref string) error {
	if len(ref) != ReferenceSize*2 {
		return fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidReference, ReferenceSize*2, len(ref))
	}
	if _, err := util.HexDecode(ref); err != nil {
		return fmt.Errorf("%w: not hex", ErrInvalidReference)
	}
	return nil
}
