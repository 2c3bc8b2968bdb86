// Package memory provides a thread-safe in-memory implementation of storage.Ledger.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jmcleod/inkseal/storage"
)

// Ledger is a thread-safe in-memory implementation of storage.Ledger.
// Suitable for testing, demos, and simulated broadcasts during development.
type Ledger struct {
	mu    sync.RWMutex
	data  map[string]*storage.Record
	order []string
	now   func() time.Time
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a new empty in-memory Ledger.
func NewLedger() *Ledger {
	return &Ledger{data: make(map[string]*storage.Record), now: time.Now}
}

func (l *Ledger) Publish(ctx context.Context, data []byte) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		rec, err := storage.NewRecord(data, l.now())
		if err != nil {
			return nil, err
		}
		if _, exists := l.data[rec.Ref]; exists {
			continue
		}
		l.data[rec.Ref] = rec
		l.order = append(l.order, rec.Ref)
		return rec.Receipt(), nil
	}
}

func (l *Ledger) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := l.Get(ref)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// Get returns a copy of the full record for ref.
func (l *Ledger) Get(ref string) (*storage.Record, error) {
	if err := storage.ValidateReference(ref); err != nil {
		return nil, err
	}
	ref = strings.ToLower(ref)
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.data[ref]
	if !ok {
		return nil, storage.NotFound(ref)
	}
	return rec.Clone(), nil
}

func (l *Ledger) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...), nil
}

// Len returns the number of published payloads.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
