package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/inkseal/crypto"
	"github.com/jmcleod/inkseal/document"
	"github.com/jmcleod/inkseal/envelope"
)

const (
	statusPass = "pass"
	statusFail = "fail"
	statusWarn = "warn"
)

const (
	kindEnvelope = "envelope"
	kindPackage  = "package"
)

type inspectResult struct {
	File    string            `json:"file,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Valid   bool              `json:"valid"`
	Summary *document.Summary `json:"summary,omitempty"`
	Checks  []checkResult     `json:"checks"`
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (r *inspectResult) add(name, status, detail string) {
	if status == statusFail {
		r.Valid = false
	}
	r.Checks = append(r.Checks, checkResult{Name: name, Status: status, Detail: detail})
}

// inspectDocument checks an envelope or package without a password. It
// verifies structure and the metadata that can be recomputed offline; the
// HMAC needs the password and is not checked.
func inspectDocument(data []byte, now time.Time) inspectResult {
	result := inspectResult{Valid: true}

	var head struct {
		EncryptionMethod string `json:"encryptionMethod"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		result.add("json", statusFail, err.Error())
		return result
	}
	result.add("json", statusPass, "")

	if head.EncryptionMethod != "" {
		result.Kind = kindEnvelope
		env, err := envelope.Parse(data)
		if err != nil {
			result.add("envelope_structure", statusFail, err.Error())
			return result
		}
		result.add("envelope_structure", statusPass, "")
		checkEnvelopeParams(&result, env)
		return result
	}

	result.Kind = kindPackage
	pkg, err := document.Unmarshal(data)
	if err != nil {
		result.add("package_structure", statusFail, err.Error())
		return result
	}
	result.add("package_structure", statusPass, fmt.Sprintf("version %s", pkg.Version))
	summary := pkg.Summary()
	result.Summary = &summary

	if pkg.Encrypted {
		checkEnvelopeParams(&result, pkg.Encryption)
	} else {
		checkPlainContent(&result, pkg)
	}
	checkTimestamp(&result, pkg.Timestamp, now)
	return result
}

func checkEnvelopeParams(result *inspectResult, env *envelope.Envelope) {
	moderate, _ := crypto.IterationsForProfile(crypto.KDFProfileModerate)
	if env.Iterations < moderate {
		result.add("kdf_iterations", statusWarn,
			fmt.Sprintf("%d iterations is below the %s profile (%d)", env.Iterations, crypto.KDFProfileModerate, moderate))
	} else {
		result.add("kdf_iterations", statusPass, fmt.Sprintf("%d iterations", env.Iterations))
	}

	if env.Version == envelope.Version1 {
		result.add("format_version", statusWarn, "format 1.0 shares one key between encryption and authentication")
	} else {
		result.add("format_version", statusPass, env.Version)
	}
}

func checkPlainContent(result *inspectResult, pkg *document.Package) {
	switch {
	case pkg.ContentHash == "":
		result.add("content_hash", statusWarn, "no content hash recorded")
	case document.ContentHash(pkg.Content) != pkg.ContentHash:
		result.add("content_hash", statusFail, "content does not match the recorded hash")
	default:
		result.add("content_hash", statusPass, "")
	}

	words := document.WordCount(pkg.Content)
	chars := document.CharacterCount(pkg.Content)
	if words != pkg.WordCount || chars != pkg.CharacterCount {
		result.add("statistics", statusWarn,
			fmt.Sprintf("recorded %d words/%d characters, counted %d/%d", pkg.WordCount, pkg.CharacterCount, words, chars))
	} else {
		result.add("statistics", statusPass, "")
	}
}

func checkTimestamp(result *inspectResult, ms int64, now time.Time) {
	switch {
	case ms <= 0:
		result.add("timestamp", statusWarn, "no timestamp recorded")
	case time.UnixMilli(ms).After(now.Add(5 * time.Minute)):
		result.add("timestamp", statusWarn, fmt.Sprintf("%s is in the future", time.UnixMilli(ms).UTC().Format(time.RFC3339)))
	default:
		result.add("timestamp", statusPass, time.UnixMilli(ms).UTC().Format(time.RFC3339))
	}
}

func printHumanResult(w io.Writer, result inspectResult) {
	if result.File != "" {
		fmt.Fprintf(w, "File: %s\n", result.File)
	}
	if result.Kind != "" {
		fmt.Fprintf(w, "Kind: %s\n", result.Kind)
	}
	if s := result.Summary; s != nil {
		if s.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", s.Title)
		}
		if s.Author != "" {
			fmt.Fprintf(w, "Author: %s\n", s.Author)
		}
		fmt.Fprintf(w, "Encrypted: %t, %d words\n", s.Encrypted, s.WordCount)
	}
	fmt.Fprintln(w)

	failures, warnings := 0, 0
	for _, c := range result.Checks {
		mark := checkMark()
		switch c.Status {
		case statusFail:
			mark = crossMark()
			failures++
		case statusWarn:
			mark = warnMark()
			warnings++
		}
		if c.Detail != "" {
			fmt.Fprintf(w, "%s %s: %s\n", mark, c.Name, c.Detail)
		} else {
			fmt.Fprintf(w, "%s %s\n", mark, c.Name)
		}
	}

	fmt.Fprintln(w)
	if result.Valid {
		fmt.Fprintf(w, "Result: VALID (%d warning(s))\n", warnings)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%d error(s), %d warning(s))\n", failures, warnings)
	}
}

func printJSONResult(w io.Writer, result inspectResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

var inspectJSONOutput bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Check an envelope or package without decrypting it",
	Long: `Reads an envelope or document package from the file or stdin and checks
its structure, KDF parameters, format version, timestamp and, for plain
packages, the content hash and statistics.

The HMAC cannot be verified without the password; use decrypt for that.
Exits 1 when any check fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectJSONOutput, "json", false, "Output results as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	in, err := openInput(inputArg(args))
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := readAllLimited(in)
	if err != nil {
		return err
	}

	result := inspectDocument(data, time.Now())
	result.File = inputArg(args)

	out := cmd.OutOrStdout()
	if inspectJSONOutput {
		if err := printJSONResult(out, result); err != nil {
			return err
		}
	} else {
		printHumanResult(out, result)
	}

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}
