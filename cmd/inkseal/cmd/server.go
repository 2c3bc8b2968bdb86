package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/api"
	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/internal/config"
	"github.com/jmcleod/inkseal/internal/util"
)

var (
	serverAddr string
	tlsCert    string
	tlsKey     string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTPS API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cipher, err := envelope.New(cfg.CipherOptions()...)
		if err != nil {
			return err
		}
		svc, closeLedger, err := openService(cmd.Context(), cfg, cipher)
		if err != nil {
			return err
		}
		defer closeLedger()

		proxies, err := api.WithTrustedProxies(cfg.Server.TrustedProxies)
		if err != nil {
			return err
		}
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a, err := api.New(svc,
			api.WithLogger(log),
			api.WithCipher(cipher),
			api.WithRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
			api.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
			api.WithAuditWebhook(cfg.Server.AuditWebhookURL, cfg.Server.AuditWebhookHeader),
			api.WithMetricsRegistry(reg),
			api.WithAlertFunc(func(alert api.AlertEvent) {
				log.Warn("security alert",
					"type", string(alert.Type),
					"count", alert.Count,
					"threshold", alert.Threshold,
					"message", alert.Message)
			}),
			proxies,
		)
		if err != nil {
			return err
		}
		defer a.Close()

		r := chi.NewRouter()
		r.Use(api.RequestID)
		r.Use(api.RequestLogger(log))
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", a.MetricsHandler())
		r.Mount("/api/v1", a.Router())

		tlsConfig, err := serverTLSConfig(cfg.Server)
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner(os.Stdout)
		log.Info("server started",
			"addr", cfg.Server.Addr,
			"ledger", cfg.Ledger.Backend,
			"format_version", cipher.Version(),
			"iterations", cipher.Iterations())

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			log.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// serverTLSConfig loads the configured key pair, or generates a self-signed
// certificate when none is set.
func serverTLSConfig(sc config.ServerConfig) (*tls.Config, error) {
	var cert tls.Certificate
	if sc.TLSCert != "" && sc.TLSKey != "" {
		var err error
		cert, err = tls.LoadX509KeyPair(sc.TLSCert, sc.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
		}
	} else {
		var err error
		cert, err = util.GenerateSelfSignedCert()
		if err != nil {
			return nil, fmt.Errorf("failed to generate self-signed certificate: %w", err)
		}
		log.Warn("using a self-signed runtime generated certificate for TLS")
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func applyServerFlags(cmd *cobra.Command, c *config.Config) {
	if flagChanged(cmd, "addr") {
		c.Server.Addr = serverAddr
	}
	if flagChanged(cmd, "tls-cert") {
		c.Server.TLSCert = tlsCert
	}
	if flagChanged(cmd, "tls-key") {
		c.Server.TLSKey = tlsKey
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&serverAddr, "addr", "a", ":8443", "Address to listen on")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
