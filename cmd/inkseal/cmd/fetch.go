package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch <ref>",
	Short: "Download a published package",
	Long:  `Writes the package stored under ref as JSON. Encrypted packages stay sealed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeLedger, err := openService(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer closeLedger()

		pkg, err := svc.Retrieve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(pkg, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding package: %w", err)
		}
		return writeOutput(fetchOut, append(out, '\n'))
	},
}

var unlockOut, unlockPasswordFile string

var unlockCmd = &cobra.Command{
	Use:   "unlock <ref>",
	Short: "Download a published package and open it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(unlockPasswordFile, false)
		if err != nil {
			return err
		}
		svc, closeLedger, err := openService(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer closeLedger()

		stop := startSpinner("Unlocking...")
		content, err := svc.Unlock(cmd.Context(), args[0], pw)
		stop()
		if err != nil {
			return err
		}
		return writeOutput(unlockOut, []byte(content))
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List published references in publish order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, closeLedger, err := openService(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		defer closeLedger()

		refs, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, ref := range refs {
			fmt.Fprintln(cmd.OutOrStdout(), ref)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd, unlockCmd, listCmd)
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Write the package here instead of stdout")
	unlockCmd.Flags().StringVarP(&unlockOut, "out", "o", "", "Write the plaintext here instead of stdout")
	unlockCmd.Flags().StringVar(&unlockPasswordFile, "password-file", "", "Read the password from this file")
}
