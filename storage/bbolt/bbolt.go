// Package bbolt provides a BBolt-backed local ledger file.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmcleod/inkseal/storage"
	"go.etcd.io/bbolt"
)

var (
	recordsBucket  = []byte("records")
	sequenceBucket = []byte("sequence")
)

// Store implements storage.Ledger backed by a BBolt database. Records are
// keyed by reference; a second bucket keyed by a monotonically increasing
// sequence number preserves publish order.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var _ storage.Ledger = (*Store)(nil)

// NewLedger returns a Ledger backed by the given BBolt database.
func NewLedger(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, sequenceBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// NewLedgerFromFile opens a BBolt database at the given path and returns a new Ledger.
func NewLedgerFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewLedger(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Publish(ctx context.Context, data []byte) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rcpt *storage.Receipt
	err := s.db.Update(func(tx *bbolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		var rec *storage.Record
		for rec == nil || records.Get([]byte(rec.Ref)) != nil {
			var err error
			rec, err = storage.NewRecord(data, s.now())
			if err != nil {
				return err
			}
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := records.Put([]byte(rec.Ref), encoded); err != nil {
			return err
		}

		seqs := tx.Bucket(sequenceBucket)
		seq, err := seqs.NextSequence()
		if err != nil {
			return err
		}
		if err := seqs.Put(sequenceKey(seq), []byte(rec.Ref)); err != nil {
			return err
		}
		rcpt = rec.Receipt()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rcpt, nil
}

func (s *Store) Fetch(ctx context.Context, ref string) ([]byte, error) {
	rec, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return rec.Data, nil
}

// Get returns the full record for ref.
func (s *Store) Get(ctx context.Context, ref string) (*storage.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := storage.ValidateReference(ref); err != nil {
		return nil, err
	}
	ref = strings.ToLower(ref)

	var rec storage.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(ref))
		if data == nil {
			return storage.NotFound(ref)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var refs []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(sequenceBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			refs = append(refs, string(v))
		}
		return nil
	})
	return refs, err
}

func sequenceKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
