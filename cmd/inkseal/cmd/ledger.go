package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/internal/config"
	"github.com/jmcleod/inkseal/storage"
	bboltstorage "github.com/jmcleod/inkseal/storage/bbolt"
	"github.com/jmcleod/inkseal/storage/handcash"
	"github.com/jmcleod/inkseal/storage/memory"
	"github.com/jmcleod/inkseal/storage/postgres"
)

var (
	ledgerBackend string
	bboltPath     string
	postgresDSN   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&ledgerBackend, "ledger", "", "Ledger backend: memory, bbolt, postgres or handcash")
	rootCmd.PersistentFlags().StringVar(&bboltPath, "bbolt-path", "", "Path of the bbolt ledger file")
	rootCmd.PersistentFlags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
}

func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}

func applyLedgerFlags(cmd *cobra.Command, c *config.Config) {
	if flagChanged(cmd, "ledger") {
		c.Ledger.Backend = ledgerBackend
	}
	if flagChanged(cmd, "bbolt-path") {
		c.Ledger.BboltPath = bboltPath
	}
	if flagChanged(cmd, "postgres-dsn") {
		c.Ledger.PostgresDSN = postgresDSN
	}
}

// openLedger opens the configured backend. The returned close func releases
// it and is never nil.
func openLedger(ctx context.Context, c *config.Config) (storage.Ledger, func(), error) {
	switch c.Ledger.Backend {
	case config.BackendMemory:
		return memory.NewLedger(), func() {}, nil
	case config.BackendBbolt:
		if dir := filepath.Dir(c.Ledger.BboltPath); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, nil, fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
		s, err := bboltstorage.NewLedgerFromFile(c.Ledger.BboltPath, &bolt.Options{Timeout: 5 * time.Second})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bbolt ledger: %w", err)
		}
		return s, func() { s.Close() }, nil
	case config.BackendPostgres:
		s, err := postgres.NewLedgerFromDSN(ctx, c.Ledger.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres ledger: %w", err)
		}
		return s, s.Close, nil
	case config.BackendHandCash:
		return handcash.New(handcash.Config{
			BaseURL:     c.Ledger.HandCash.BaseURL,
			AccessToken: c.Ledger.HandCash.AccessToken,
			AppName:     c.Ledger.HandCash.AppName,
			Timeout:     c.Ledger.HandCash.Timeout,
		}), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown ledger backend %q", config.ErrInvalidConfig, c.Ledger.Backend)
	}
}

// openService opens the ledger and wraps it in a document service configured
// from c.
func openService(ctx context.Context, c *config.Config, cipher *envelope.Cipher) (*document.Service, func(), error) {
	ledger, closeFn, err := openLedger(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := document.NewService(ledger,
		document.WithCipher(cipher),
		document.WithRates(c.Rates()),
		document.WithExplorerURL(c.Pricing.ExplorerURL),
		document.WithLogger(log),
	)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}
