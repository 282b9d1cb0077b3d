package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var detectCmd = &cobra.Command{
	Use:   "detect [files...]",
	Short: "Detect the FatturaPA sub-type",
	Long: `Detect whether each document is a FatturaOrdinaria or a FatturaSemplificata.

Detection validates against the sub-type schemas first and falls back to the
root versione attribute (FPR12/FPA12 or FSM10) when no schema decides.

Examples:
  fattura-processor detect invoice.xml
  fattura-processor detect -r json invoices/*.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

// DetectResult is the per-file detect output
type DetectResult struct {
	File     string   `json:"file"`
	SubType  string   `json:"subtype,omitempty"`
	Phase    string   `json:"phase,omitempty"`
	Schema   string   `json:"schema,omitempty"`
	Versione string   `json:"versione,omitempty"`
	Tried    []string `json:"tried,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, invoiceExtensions)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	results := make([]DetectResult, 0, len(files))
	failed := 0
	for _, file := range files {
		printVerbose(cmd, "Detecting: %s\n", file)

		r := detectFile(ctx, proc, file)
		if r.Error != "" {
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
			if r.Error != "" {
				fmt.Fprintf(out, "✗ %s: %s\n", r.File, r.Error)
				continue
			}
			fmt.Fprintf(out, "✓ %s: %s (%s)\n", r.File, r.SubType, r.Phase)
			if verbose && r.Versione != "" {
				fmt.Fprintf(out, "  Versione: %s\n", r.Versione)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("detection failed for %d of %d files", failed, len(files))
	}
	return nil
}

func detectFile(ctx context.Context, proc *fatturalib.Processor, file string) DetectResult {
	result := DetectResult{File: file}

	raw, err := readInvoice(file)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	det, err := proc.DetectDetailed(ctx, raw)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.SubType = det.SubType.String()
	result.Phase = string(det.Phase)
	result.Schema = det.Schema
	result.Versione = det.Versione
	result.Tried = det.Tried
	return result
}
