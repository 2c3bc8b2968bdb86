package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/password"
)

var (
	passwordJSON bool
	strengthFile string
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Check and generate passwords",
}

var strengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Score a password from 0 to 100",
	Long: `Scores the password read from --password-file, INKSEAL_PASSWORD or an
interactive prompt. The password itself is never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pw, err := readPassword(strengthFile, false)
		if err != nil {
			return err
		}
		return printStrength(cmd.OutOrStdout(), "", password.CheckPasswordStrength(pw), passwordJSON)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a strong random password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pw, err := password.GeneratePassword()
		if err != nil {
			return err
		}
		return printStrength(cmd.OutOrStdout(), pw, password.CheckPasswordStrength(pw), passwordJSON)
	},
}

// printStrength writes a report, with the generated password when pw is set.
func printStrength(w io.Writer, pw string, report password.StrengthReport, asJSON bool) error {
	if asJSON {
		out := struct {
			Password string `json:"password,omitempty"`
			password.StrengthReport
		}{pw, report}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if pw != "" {
		fmt.Fprintln(w, pw)
	}
	fmt.Fprintf(w, "Score:    %s\n", scoreColor(report.Score))
	fmt.Fprintf(w, "Feedback: %s\n", report.Feedback)
	if report.Common {
		printWarning(w, "found in the list of common passwords")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(passwordCmd)
	passwordCmd.AddCommand(strengthCmd, generateCmd)
	passwordCmd.PersistentFlags().BoolVar(&passwordJSON, "json", false, "Output JSON")
	strengthCmd.Flags().StringVar(&strengthFile, "password-file", "", "Read the password from this file")
}
