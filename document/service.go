package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/internal/logger"
	"github.com/jmcleod/inkseal/storage"
)

// DefaultExplorerURL is the transaction explorer used for published documents.
const DefaultExplorerURL = "https://whatsonchain.com/tx/"

// PublishOptions describe a document to publish. An empty Password
// publishes the content unencrypted.
type PublishOptions struct {
	Metadata
	Password  string
	BudgetUSD float64
}

// Result is returned by Service.Publish.
type Result struct {
	TransactionID string       `json:"transactionId"`
	DocumentHash  string       `json:"documentHash"`
	Quote         StorageQuote `json:"storageCost"`
	Timestamp     int64        `json:"timestamp"`
	ExplorerURL   string       `json:"explorerUrl"`
	Size          int          `json:"size"`
}

// Service seals, prices and publishes documents to a ledger and reads them
// back. It is safe for concurrent use.
type Service struct {
	ledger      storage.Ledger
	cipher      *envelope.Cipher
	rates       Rates
	explorerURL string
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCipher sets the cipher used to seal and open packages.
func WithCipher(c *envelope.Cipher) ServiceOption {
	return func(s *Service) { s.cipher = c }
}

// WithRates sets the pricing used for quotes.
func WithRates(r Rates) ServiceOption {
	return func(s *Service) { s.rates = r.withDefaults() }
}

// WithExplorerURL sets the prefix joined with a transaction id to form the
// explorer link.
func WithExplorerURL(u string) ServiceOption {
	return func(s *Service) { s.explorerURL = u }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService returns a Service publishing to ledger.
func NewService(ledger storage.Ledger, opts ...ServiceOption) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("document service requires a ledger")
	}
	s := &Service{
		ledger:      ledger,
		rates:       DefaultRates(),
		explorerURL: DefaultExplorerURL,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cipher == nil {
		c, err := envelope.New()
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s, nil
}

// Quote prices content without publishing it.
func (s *Service) Quote(content string, encrypted bool, budgetUSD float64) StorageQuote {
	return Quote(WordCount(content), encrypted, budgetUSD, s.rates)
}

// Rates returns the pricing in effect.
func (s *Service) Rates() Rates {
	return s.rates
}

// Publish builds a package from content, seals it when opts.Password is set
// and publishes it to the ledger.
func (s *Service) Publish(ctx context.Context, content string, opts PublishOptions) (*Result, error) {
	var (
		pkg *Package
		err error
	)
	encrypted := opts.Password != ""
	if encrypted {
		pkg, err = SealWith(s.cipher, content, opts.Password, opts.Metadata)
		if err != nil {
			return nil, err
		}
	} else {
		pkg = NewPlain(content, opts.Metadata)
	}

	data, err := pkg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding package: %w", err)
	}
	quote := Quote(pkg.WordCount, encrypted, opts.BudgetUSD, s.rates)

	rcpt, err := s.ledger.Publish(ctx, data)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "publish failed",
			slog.Int("size", len(data)),
			slog.Bool("encrypted", encrypted),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("publishing document: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "document published",
		slog.String("ref", rcpt.Ref),
		slog.String("content_hash", pkg.ContentHash),
		slog.Int("size", rcpt.Size),
		slog.Int("words", pkg.WordCount),
		slog.Bool("encrypted", encrypted),
		slog.Int64("total_sats", quote.TotalSats))

	return &Result{
		TransactionID: rcpt.Ref,
		DocumentHash:  pkg.ContentHash,
		Quote:         quote,
		Timestamp:     pkg.Timestamp,
		ExplorerURL:   s.ExplorerURL(rcpt.Ref),
		Size:          rcpt.Size,
	}, nil
}

// ExplorerURL returns the explorer link for ref.
func (s *Service) ExplorerURL(ref string) string {
	if s.explorerURL == "" {
		return ""
	}
	if strings.Contains(s.explorerURL, "%s") {
		return fmt.Sprintf(s.explorerURL, ref)
	}
	return s.explorerURL + ref
}

// Retrieve fetches and decodes the package published under ref. Encrypted
// packages are returned still sealed.
func (s *Service) Retrieve(ctx context.Context, ref string) (*Package, error) {
	data, err := s.ledger.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	pkg, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding package %s: %w", ref, err)
	}
	return pkg, nil
}

// Unlock fetches the package published under ref and opens it with password.
func (s *Service) Unlock(ctx context.Context, ref, password string) (string, error) {
	pkg, err := s.Retrieve(ctx, ref)
	if err != nil {
		return "", err
	}
	start := time.Now()
	content, err := OpenWith(s.cipher, pkg, password)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "unlock failed",
			slog.String("ref", ref),
			slog.String("error", err.Error()))
		return "", err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "document unlocked",
		slog.String("ref", ref),
		slog.Duration("elapsed", time.Since(start)))
	return content, nil
}

// List returns the references on the ledger in publish order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.ledger.List(ctx)
}
