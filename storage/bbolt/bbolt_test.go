package bbolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmcleod/inkseal/storage"
	"github.com/jmcleod/inkseal/storage/ledgertest"
	"go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) *bbolt.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger-test.db")
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBBoltLedger(t *testing.T) {
	s, err := NewLedger(newTestDB(t))
	if err != nil {
		t.Fatalf("NewLedger failed: %v", err)
	}
	ledgertest.Run(t, s)
}

func TestBBoltPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "persist.db")

	s, err := NewLedgerFromFile(path, nil)
	if err != nil {
		t.Fatalf("NewLedgerFromFile failed: %v", err)
	}
	first, err := s.Publish(ctx, []byte("first"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	second, err := s.Publish(ctx, []byte("second"))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewLedgerFromFile(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Fetch(ctx, first.Ref)
	if err != nil {
		t.Fatalf("Fetch after reopen failed: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("expected %q, got %q", "first", got)
	}

	rec, err := reopened.Get(ctx, second.Ref)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !rec.CreatedAt.Equal(second.Timestamp) {
		t.Errorf("expected timestamp %v, got %v", second.Timestamp, rec.CreatedAt)
	}

	refs, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(refs) != 2 || refs[0] != first.Ref || refs[1] != second.Ref {
		t.Errorf("unexpected list order: %v", refs)
	}

	missing, _ := storage.NewReference()
	if _, err := reopened.Fetch(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
