package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/document"
)

var (
	quoteWords     int
	quoteEncrypted bool
	quoteBudget    float64
	quoteJSON      bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote [file]",
	Short: "Price the storage of a document",
	Long: `Prices a document by word count. The count comes from --words or, when it
is not set, from the file or stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if quoteBudget < 0 {
			return errors.New("--budget must not be negative")
		}
		words, sealedBytes := quoteWords, 0
		if !flagChanged(cmd, "words") {
			in, err := openInput(inputArg(args))
			if err != nil {
				return err
			}
			defer in.Close()
			data, err := readAllLimited(in)
			if err != nil {
				return err
			}
			words = document.WordCount(string(data))
			if quoteEncrypted {
				sealedBytes = document.EstimateEncryptedSize(len(data))
			}
		}
		if words < 0 {
			return errors.New("--words must not be negative")
		}
		q := document.Quote(words, quoteEncrypted, quoteBudget, cfg.Rates())
		return printQuote(cmd.OutOrStdout(), q, sealedBytes, quoteJSON)
	},
}

// printQuote writes q. sealedBytes, when positive, is the estimated size of
// the envelope for the document actually read.
func printQuote(w io.Writer, q document.StorageQuote, sealedBytes int, asJSON bool) error {
	if asJSON {
		out := struct {
			document.StorageQuote
			SealedBytes int `json:"estimatedSealedBytes,omitempty"`
		}{q, sealedBytes}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Fprintf(w, "Words:       %d\n", q.WordCount)
	fmt.Fprintf(w, "Bytes:       %d\n", q.Bytes)
	if sealedBytes > 0 {
		fmt.Fprintf(w, "Sealed size: ~%d bytes\n", sealedBytes)
	}
	fmt.Fprintf(w, "Miner fee:   %d sats\n", q.MinerFeeSats)
	fmt.Fprintf(w, "Service fee: %d sats\n", q.ServiceFeeSats)
	fmt.Fprintf(w, "Total:       %d sats ($%.6f)\n", q.TotalSats, q.TotalUSD)
	fmt.Fprintf(w, "Summary:     %s\n", q.Description)
	if q.Budget.RequiresIncrease {
		msg := fmt.Sprintf("exceeds the $%.2f budget", q.Budget.CurrentLimit)
		if q.Budget.SuggestedLimit != nil {
			msg += fmt.Sprintf("; suggested $%.2f", *q.Budget.SuggestedLimit)
		}
		printWarning(w, "%s", msg)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().IntVar(&quoteWords, "words", 0, "Word count to price instead of reading a document")
	quoteCmd.Flags().BoolVar(&quoteEncrypted, "encrypted", false, "Price the encrypted size")
	quoteCmd.Flags().Float64Var(&quoteBudget, "budget", 0, "Auto-save budget in USD (0 selects the default)")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "Output JSON")
}
