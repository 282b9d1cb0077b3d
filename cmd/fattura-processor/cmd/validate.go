package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoices against their sub-type schema",
	Long: `Detect the sub-type of each invoice and validate it against the matching
XSD schema (FatturaOrdinaria or FatturaSemplificata) with xmllint.

Without xmllint the verdict is "unknown", which only fails with --strict.

Examples:
  fattura-processor validate invoice.xml
  fattura-processor validate invoices/ --strict`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

// ValidateResult is the per-file validate output
type ValidateResult struct {
	File    string             `json:"file"`
	SubType string             `json:"subtype,omitempty"`
	Verdict fatturalib.Verdict `json:"verdict,omitempty"`
	Schema  string             `json:"schema,omitempty"`
	Errors  []string           `json:"errors"`
	Error   string             `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat an unknown verdict as a failure")
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, invoiceExtensions)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	results := make([]ValidateResult, 0, len(files))
	failed := 0
	for _, file := range files {
		printVerbose(cmd, "Validating: %s\n", file)

		r := validateFile(ctx, proc, file)
		if !passed(r) {
			failed++
		}
		results = append(results, r)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Error != "":
				fmt.Fprintf(out, "✗ %s: %s\n", r.File, r.Error)
				continue
			case r.Verdict == fatturalib.VerdictValid:
				fmt.Fprintf(out, "✓ %s: VALID (%s)\n", r.File, r.Schema)
			case r.Verdict == fatturalib.VerdictUnknown:
				fmt.Fprintf(out, "⚠ %s: UNKNOWN (%s)\n", r.File, r.Schema)
			default:
				fmt.Fprintf(out, "✗ %s: INVALID (%s)\n", r.File, r.Schema)
			}
			for _, e := range r.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d files", failed, len(files))
	}
	return nil
}

func validateFile(ctx context.Context, proc *fatturalib.Processor, file string) ValidateResult {
	result := ValidateResult{File: file, Errors: []string{}}

	raw, err := readInvoice(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	doc, err := proc.Open(ctx, raw)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.SubType = doc.SubType().String()

	v, err := proc.Validate(ctx, doc)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Verdict = v.Verdict
	result.Schema = v.Schema
	result.Errors = v.Errors
	return result
}

func passed(r ValidateResult) bool {
	if r.Error != "" {
		return false
	}
	switch r.Verdict {
	case fatturalib.VerdictValid:
		return true
	case fatturalib.VerdictUnknown:
		return !strictValidation
	default:
		return false
	}
}
