package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show a summary of invoice files",
	Long: `Display the key facts of each invoice without rendering it.

Shows:
  - File size and root element
  - Detected sub-type and versione
  - Seller, buyer, number, date and total

Examples:
  fattura-processor info invoice.xml
  fattura-processor info -r json invoices/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

// InfoResult is the per-file info output
type InfoResult struct {
	File    string              `json:"file"`
	Size    int64               `json:"size"`
	Root    string              `json:"root,omitempty"`
	Summary *fatturalib.Summary `json:"summary,omitempty"`
	Error   string              `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, invoiceExtensions)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	results := make([]InfoResult, 0, len(files))
	for _, file := range files {
		results = append(results, fileInfo(ctx, proc, file))
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	for _, r := range results {
		printInfo(out, r)
		fmt.Fprintln(out)
	}
	return nil
}

func fileInfo(ctx context.Context, proc *fatturalib.Processor, file string) InfoResult {
	result := InfoResult{File: file}

	if info, err := os.Stat(file); err == nil {
		result.Size = info.Size()
	}

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
	result.Root = doc.RootName()

	s, err := proc.Summarize(doc)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Summary = s
	return result
}

func printInfo(out io.Writer, r InfoResult) {
	fmt.Fprintf(out, "File: %s\n", r.File)
	fmt.Fprintf(out, "  Size: %d bytes\n", r.Size)
	if r.Root != "" {
		fmt.Fprintf(out, "  Root: %s\n", r.Root)
	}
	if r.Error != "" {
		fmt.Fprintf(out, "  ✗ %s\n", r.Error)
		return
	}

	s := r.Summary
	fmt.Fprintf(out, "  Sub-type: %s (%s)\n", s.SubType, s.Versione)
	fmt.Fprintf(out, "  Document: %s %s of %s\n", s.DocumentType, s.Number, s.Date)
	fmt.Fprintf(out, "  Seller:   %s", s.Seller.Name)
	if s.Seller.VATID != "" {
		fmt.Fprintf(out, " (%s)", s.Seller.VATID)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Buyer:    %s", s.Buyer.Name)
	if s.Buyer.VATID != "" {
		fmt.Fprintf(out, " (%s)", s.Buyer.VATID)
	} else if s.Buyer.FiscalCode != "" {
		fmt.Fprintf(out, " (%s)", s.Buyer.FiscalCode)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Lines:    %d\n", s.Lines)
	fmt.Fprintf(out, "  Total:    %s %s (%s)\n", s.Total.StringFixed(2), s.Currency, s.TotalSource)
	if s.Bodies > 1 {
		fmt.Fprintf(out, "  ⚠ batch of %d bodies, figures cover the first\n", s.Bodies)
	}
}
