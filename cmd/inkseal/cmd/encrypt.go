package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/envelope"
	"github.com/jmcleod/inkseal/password"
)

var (
	encryptOut          string
	encryptPasswordFile string
	encryptFlags        cipherFlags
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [file]",
	Short: "Seal a text file into a NoteSV envelope",
	Long: `Reads UTF-8 text from the file or stdin and writes the JSON envelope to
--out or stdout. The password comes from --password-file, INKSEAL_PASSWORD
or an interactive prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := encryptFlags.cipher()
		if err != nil {
			return err
		}
		pw, err := readPassword(encryptPasswordFile, true)
		if err != nil {
			return err
		}
		if report := password.CheckPasswordStrength(pw); !report.Strong() {
			printWarning(os.Stderr, "weak password (%d/100): %s", report.Score, report.Feedback)
		}

		in, err := openInput(inputArg(args))
		if err != nil {
			return err
		}
		defer in.Close()

		var buf bytes.Buffer
		stop := startSpinner("Deriving key...")
		err = encryptStream(c, in, &buf, pw)
		stop()
		if err != nil {
			return err
		}
		log.Debug("envelope sealed", "version", c.Version(), "iterations", c.Iterations())
		return writeOutput(encryptOut, buf.Bytes())
	},
}

// encryptStream seals everything read from r and writes the indented
// envelope JSON to w.
func encryptStream(c *envelope.Cipher, r io.Reader, w io.Writer, pw string) error {
	data, err := readAllLimited(r)
	if err != nil {
		return err
	}
	env, err := c.Encrypt(string(data), pw)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	out = append(out, '\n')
	_, err = w.Write(out)
	return err
}

func init() {
	rootCmd.AddCommand(encryptCmd)
	encryptCmd.Flags().StringVarP(&encryptOut, "out", "o", "", "Write the envelope here instead of stdout")
	encryptCmd.Flags().StringVar(&encryptPasswordFile, "password-file", "", "Read the password from this file")
	encryptFlags.register(encryptCmd)
}
