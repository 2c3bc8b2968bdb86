package cmd

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/internal/config"
	"github.com/jmcleod/inkseal/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "inkseal",
	Short: "Inkseal seals documents with NoteSV-compatible encryption",
	Long: `Password-based document encryption compatible with NoteSV envelopes,
with storage quotes and publishing to an append-only ledger.
Complete documentation is available at https://github.com/jmcleod/inkseal`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultConfig := os.Getenv(config.EnvPrefix + "CONFIG")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if noColor {
		color.NoColor = true
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	applyServerFlags(cmd, c)
	applyLedgerFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}

	l, err := logger.New(os.Stderr, c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, log = c, l
	slog.SetDefault(l)
	return nil
}
