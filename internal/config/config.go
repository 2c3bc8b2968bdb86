// Package config loads inkseal settings from an optional YAML file and
// INKSEAL_* environment variables. Command-line flags are applied on top by
// the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jmcleod/inkseal/crypto"
	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "INKSEAL_"

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendBbolt    = "bbolt"
	BackendPostgres = "postgres"
	BackendHandCash = "handcash"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Server  ServerConfig  `yaml:"server" envPrefix:"SERVER_"`
	Ledger  LedgerConfig  `yaml:"ledger" envPrefix:"LEDGER_"`
	Crypto  CryptoConfig  `yaml:"crypto" envPrefix:"CRYPTO_"`
	Pricing PricingConfig `yaml:"pricing" envPrefix:"PRICING_"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr               string        `yaml:"addr" env:"ADDR"`
	TLSCert            string        `yaml:"tls_cert" env:"TLS_CERT"`
	TLSKey             string        `yaml:"tls_key" env:"TLS_KEY"`
	RateLimitRPS       float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	TrustedProxies     []string      `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
	MaxBodyBytes       int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	AuditWebhookURL    string        `yaml:"audit_webhook_url" env:"AUDIT_WEBHOOK_URL"`
	AuditWebhookHeader string        `yaml:"audit_webhook_header" env:"AUDIT_WEBHOOK_HEADER"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// LedgerConfig selects and configures the ledger backend.
type LedgerConfig struct {
	Backend     string         `yaml:"backend" env:"BACKEND"`
	BboltPath   string         `yaml:"bbolt_path" env:"BBOLT_PATH"`
	PostgresDSN string         `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	HandCash    HandCashConfig `yaml:"handcash" envPrefix:"HANDCASH_"`
}

// HandCashConfig configures the HandCash Connect backend.
type HandCashConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	AccessToken string        `yaml:"access_token" env:"ACCESS_TOKEN"`
	AppName     string        `yaml:"app_name" env:"APP_NAME"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// CryptoConfig sets how new envelopes are written. Iterations, when set,
// wins over Profile.
type CryptoConfig struct {
	Iterations    int    `yaml:"iterations" env:"ITERATIONS"`
	Profile       string `yaml:"profile" env:"PROFILE"`
	FormatVersion string `yaml:"format_version" env:"FORMAT_VERSION"`
}

// PricingConfig overrides the storage quote inputs.
type PricingConfig struct {
	BSVPriceUSD float64 `yaml:"bsv_price_usd" env:"BSV_PRICE_USD"`
	SatsPerByte float64 `yaml:"sats_per_byte" env:"SATS_PER_BYTE"`
	ExplorerURL string  `yaml:"explorer_url" env:"EXPLORER_URL"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Addr:            ":8443",
			RateLimitRPS:    2,
			RateLimitBurst:  10,
			MaxBodyBytes:    4 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Ledger: LedgerConfig{
			Backend:   BackendMemory,
			BboltPath: "inkseal.db",
		},
		Crypto: CryptoConfig{
			Profile:       crypto.KDFProfileNoteSV,
			FormatVersion: envelope.Version2,
		},
		Pricing: PricingConfig{
			BSVPriceUSD: document.DefaultBSVPriceUSD,
			SatsPerByte: document.DefaultSatsPerByte,
			ExplorerURL: document.DefaultExplorerURL,
		},
	}
}

// Load builds a Config from defaults, then the YAML file at path (if path is
// not empty), then the process environment.
func Load(path string) (*Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

// LoadWithEnv is Load with an explicit environment instead of the process's.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	return load(path, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(path string, opts env.Options) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks that the configuration is usable. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log format %q", c.Log.Format)
	}

	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		add("tls cert and key must be set together")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		add("rate limit must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		add("max body bytes must not be negative")
	}

	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendBbolt:
		if c.Ledger.BboltPath == "" {
			add("bbolt backend needs a path")
		}
	case BackendPostgres:
		if c.Ledger.PostgresDSN == "" {
			add("postgres backend needs a dsn")
		}
	case BackendHandCash:
		if c.Ledger.HandCash.AccessToken == "" {
			add("handcash backend needs an access token")
		}
	default:
		add("unknown ledger backend %q", c.Ledger.Backend)
	}

	if c.Crypto.Iterations != 0 {
		if err := crypto.ValidateIterations(c.Crypto.Iterations); err != nil {
			add("%v", err)
		}
	} else if c.Crypto.Profile != "" {
		if _, err := crypto.IterationsForProfile(c.Crypto.Profile); err != nil {
			add("%v", err)
		}
	}
	switch c.Crypto.FormatVersion {
	case "", envelope.Version1, envelope.Version2:
	default:
		add("envelope format version %q", c.Crypto.FormatVersion)
	}

	if c.Pricing.BSVPriceUSD < 0 || c.Pricing.SatsPerByte < 0 {
		add("pricing must not be negative")
	}
	return errors.Join(errs...)
}

// CipherOptions returns the envelope options selected by the crypto section.
func (c *Config) CipherOptions() []envelope.Option {
	var opts []envelope.Option
	switch {
	case c.Crypto.Iterations != 0:
		opts = append(opts, envelope.WithIterations(c.Crypto.Iterations))
	case c.Crypto.Profile != "":
		opts = append(opts, envelope.WithKDFProfile(c.Crypto.Profile))
	}
	if c.Crypto.FormatVersion != "" {
		opts = append(opts, envelope.WithFormatVersion(c.Crypto.FormatVersion))
	}
	return opts
}

// Rates returns the storage pricing with the configured overrides.
func (c *Config) Rates() document.Rates {
	r := document.DefaultRates()
	if c.Pricing.BSVPriceUSD > 0 {
		r.BSVPriceUSD = c.Pricing.BSVPriceUSD
	}
	if c.Pricing.SatsPerByte > 0 {
		r.SatsPerByte = c.Pricing.SatsPerByte
	}
	return r
}
