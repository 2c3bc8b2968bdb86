package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/envelope"
)

// cipherFlags are shared by commands that write envelopes.
type cipherFlags struct {
	iterations    int
	profile       string
	formatVersion string
}

func (f *cipherFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.iterations, "iterations", 0, "PBKDF2 iteration count (overrides the config)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "KDF profile: notesv, moderate or sensitive")
	cmd.Flags().StringVar(&f.formatVersion, "format-version", "", "Envelope format version to write: 1.0 or 2.0")
}

// cipher builds the cipher from the loaded config with flag overrides
// applied last.
func (f *cipherFlags) cipher() (*envelope.Cipher, error) {
	opts := cfg.CipherOptions()
	switch {
	case f.iterations != 0:
		opts = append(opts, envelope.WithIterations(f.iterations))
	case f.profile != "":
		opts = append(opts, envelope.WithKDFProfile(f.profile))
	}
	if f.formatVersion != "" {
		opts = append(opts, envelope.WithFormatVersion(f.formatVersion))
	}
	return envelope.New(opts...)
}
