package cmd

import (
	"bytes"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
)

var (
	decryptOut          string
	decryptPasswordFile string
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt [file]",
	Short: "Open a NoteSV envelope or sealed package",
	Long: `Reads an envelope, or a document package carrying one, from the file or
stdin and writes the recovered text to --out or stdout. Both format 1.0 and
2.0 envelopes are accepted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(decryptPasswordFile, false)
		if err != nil {
			return err
		}
		in, err := openInput(inputArg(args))
		if err != nil {
			return err
		}
		defer in.Close()

		var buf bytes.Buffer
		stop := startSpinner("Deriving key...")
		err = decryptStream(in, &buf, pw)
		stop()
		if err != nil {
			return err
		}
		return writeOutput(decryptOut, buf.Bytes())
	},
}

// decryptStream opens the envelope read from r and writes the plaintext to w.
// A document package is opened with its content hash checked.
func decryptStream(r io.Reader, w io.Writer, pw string) error {
	data, err := readAllLimited(r)
	if err != nil {
		return err
	}
	content, err := openSealed(data, pw)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

// openSealed accepts either a bare envelope or an encrypted package. When
// data is neither, the envelope parse error is returned.
func openSealed(data []byte, pw string) (string, error) {
	env, err := envelope.Parse(data)
	if err == nil {
		return envelope.Decrypt(env, pw)
	}
	pkg, perr := document.Unmarshal(data)
	if perr != nil || !pkg.Encrypted {
		return "", err
	}
	return document.Open(pkg, pw)
}

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().StringVarP(&decryptOut, "out", "o", "", "Write the plaintext here instead of stdout")
	decryptCmd.Flags().StringVar(&decryptPasswordFile, "password-file", "", "Read the password from this file")
}
