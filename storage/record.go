package storage

import (
	"fmt"
	"time"
)

// Record is a published payload as kept by local backends.
type Record struct {
	Ref       string    `json:"ref"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord validates data and assigns it a fresh reference.
func NewRecord(data []byte, now time.Time) (*Record, error) {
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	ref, err := NewReference()
	if err != nil {
		return nil, err
	}
	return &Record{
		Ref:       ref,
		Data:      append([]byte(nil), data...),
		CreatedAt: now.UTC(),
	}, nil
}

// Receipt returns the publish receipt for r.
func (r *Record) Receipt() *Receipt {
	return &Receipt{Ref: r.Ref, Size: len(r.Data), Timestamp: r.CreatedAt}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{Ref: r.Ref, Data: append([]byte(nil), r.Data...), CreatedAt: r.CreatedAt}
}

// NotFound wraps ErrNotFound with the reference.
func NotFound(ref string) error {
	return fmt.Errorf("%s: %w", ref, ErrNotFound)
}
