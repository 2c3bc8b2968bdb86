package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/internal/config"
)

var (
	publishTitle        string
	publishAuthor       string
	publishDescription  string
	publishTags         []string
	publishCategory     string
	publishEncrypt      bool
	publishBudget       float64
	publishPasswordFile string
	publishJSON         bool
	publishFlags        cipherFlags
)

var publishCmd = &cobra.Command{
	Use:   "publish [file]",
	Short: "Package a document and publish it to the ledger",
	Long: `Reads the document from the file or stdin, wraps it in a package with the
given metadata and publishes it. With --encrypt the content is sealed first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := publishFlags.cipher()
		if err != nil {
			return err
		}
		var pw string
		if publishEncrypt {
			if pw, err = readPassword(publishPasswordFile, true); err != nil {
				return err
			}
		}

		in, err := openInput(inputArg(args))
		if err != nil {
			return err
		}
		defer in.Close()
		data, err := readAllLimited(in)
		if err != nil {
			return err
		}

		svc, closeLedger, err := openService(cmd.Context(), cfg, c)
		if err != nil {
			return err
		}
		defer closeLedger()
		if cfg.Ledger.Backend == config.BackendMemory {
			printWarning(os.Stderr, "memory ledger: the document is lost when this command exits")
		}

		stop := startSpinner("Publishing...")
		res, err := svc.Publish(cmd.Context(), string(data), document.PublishOptions{
			Metadata: document.Metadata{
				Title:       publishTitle,
				Author:      publishAuthor,
				Description: publishDescription,
				Tags:        publishTags,
				Category:    publishCategory,
			},
			Password:  pw,
			BudgetUSD: publishBudget,
		})
		stop()
		if err != nil {
			return err
		}
		return printPublishResult(cmd.OutOrStdout(), res, publishJSON)
	},
}

func printPublishResult(w io.Writer, res *document.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printSuccess(w, "Published %d bytes", res.Size)
	fmt.Fprintf(w, "Reference: %s\n", res.TransactionID)
	fmt.Fprintf(w, "Hash:      %s\n", res.DocumentHash)
	fmt.Fprintf(w, "Cost:      %d sats ($%.6f)\n", res.Quote.TotalSats, res.Quote.TotalUSD)
	fmt.Fprintf(w, "Explorer:  %s\n", res.ExplorerURL)
	if res.Quote.Budget.RequiresIncrease {
		printWarning(w, "cost exceeds the auto-save budget of $%.2f", res.Quote.Budget.CurrentLimit)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)
	f := publishCmd.Flags()
	f.StringVar(&publishTitle, "title", "", "Document title")
	f.StringVar(&publishAuthor, "author", "", "Document author")
	f.StringVar(&publishDescription, "description", "", "Document description")
	f.StringSliceVar(&publishTags, "tag", nil, "Tag (repeatable)")
	f.StringVar(&publishCategory, "category", "", "Document category")
	f.BoolVar(&publishEncrypt, "encrypt", false, "Seal the content under a password")
	f.StringVar(&publishPasswordFile, "password-file", "", "Read the password from this file")
	f.Float64Var(&publishBudget, "budget", 0, "Auto-save budget in USD (0 selects the default)")
	f.BoolVar(&publishJSON, "json", false, "Output JSON")
	publishFlags.register(publishCmd)
}
