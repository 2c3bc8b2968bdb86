// Package postgres implements storage.Ledger backed by PostgreSQL.
//
// Entries live in a single ledger_entries table keyed by reference. Payloads
// are stored as native BYTEA and a BIGSERIAL column preserves publish order
// so that List matches the BBolt and in-memory backends.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/inkseal/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// Store implements storage.Ledger backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ storage.Ledger = (*Store)(nil)

// NewLedger returns a Ledger backed by the given pgx connection pool.
func NewLedger(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// NewLedgerFromDSN creates a connection pool from a DSN string, ensures
// the schema exists, and returns a new Ledger.
func NewLedgerFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return NewLedger(pool), nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Publish(ctx context.Context, data []byte) (*storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for {
		rec, err := storage.NewRecord(data, s.now())
		if err != nil {
			return nil, err
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO ledger_entries (ref, data, created_at) VALUES ($1, $2, $3)`,
			rec.Ref, rec.Data, rec.CreatedAt)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("inserting ledger entry: %w", err)
		}
		return rec.Receipt(), nil
	}
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

	rec := storage.Record{Ref: ref}
	err := s.pool.QueryRow(ctx,
		`SELECT data, created_at FROM ledger_entries WHERE ref = $1`, ref).Scan(&rec.Data, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.NotFound(ref)
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT ref FROM ledger_entries ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
