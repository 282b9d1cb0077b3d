package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var (
	caFiles  []string
	skipOCSP bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [files...]",
	Short: "Verify XAdES signatures",
	Long: `Verify the enveloped XAdES signature of signed FatturaPA files.

Verifies:
  - Signature validity (cryptographic verification of the signed document)
  - Certificate chain (to the trusted certificates given with --ca-file)
  - Certificate revocation (OCSP, soft-fail with --skip-ocsp)
  - Signer information and signing time

CAdES (.p7m) envelopes are recognised but not verified.

Examples:
  # Verify against a qualified CA bundle
  fattura-processor verify --ca-file qtsp.pem IT01234567890_FPR02.xml

  # Tolerate an unreachable OCSP responder
  fattura-processor verify --ca-file qtsp.pem --skip-ocsp signed/

  # JSON output
  fattura-processor verify -r json --ca-file qtsp.pem invoice.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringSliceVar(&caFiles, "ca-file", nil, "Trusted CA certificates (PEM), repeatable")
	verifyCmd.Flags().BoolVar(&skipOCSP, "skip-ocsp", false, "Do not fail when the OCSP responder cannot be reached")
}

func runVerify(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, signedExtensions)
	if err != nil {
		return err
	}

	cfg.Trust.PEMFiles = append(cfg.Trust.PEMFiles, caFiles...)
	if skipOCSP {
		cfg.Trust.SoftFail = true
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	if proc.Capabilities().TrustedCerts == 0 {
		printVerbose(cmd, "No trusted certificates configured, chains will not verify\n")
	}

	results := make([]*VerifyResult, 0, len(files))
	allValid := true
	for _, file := range files {
		printVerbose(cmd, "Verifying: %s\n", file)

		result := verifyFile(commandContext(cmd), proc, file)
		results = append(results, result)
		if !result.Valid {
			allValid = false
		}
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
			printVerifyResult(out, r)
		}
	}

	if !allValid {
		return fmt.Errorf("verification failed for some files")
	}
	return nil
}

// VerifyResult holds the result of verifying a single file
type VerifyResult struct {
	File string `json:"file"`
	*fatturalib.VerificationResult
}

func verifyFile(parent context.Context, proc *fatturalib.Processor, filePath string) *VerifyResult {
	ctx, cancel := context.WithTimeout(parent, 60*time.Second)
	defer cancel()

	failed := func(format string, args ...any) *VerifyResult {
		vr := &fatturalib.VerificationResult{Errors: []string{}, Warnings: []string{}}
		vr.AddError(fmt.Sprintf(format, args...))
		return &VerifyResult{File: filePath, VerificationResult: vr}
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return failed("failed to read file: %v", err)
	}

	vr, err := proc.VerifySignature(ctx, data)
	if err != nil {
		if vr != nil {
			return &VerifyResult{File: filePath, VerificationResult: vr}
		}
		return failed("%v", err)
	}
	return &VerifyResult{File: filePath, VerificationResult: vr}
}

func printVerifyResult(out io.Writer, r *VerifyResult) {
	statusIcon, statusText := "✓", "VALID"
	if !r.Valid {
		statusIcon, statusText = "✗", "INVALID"
	}
	fmt.Fprintf(out, "%s %s: %s\n", statusIcon, r.File, statusText)

	if r.Format != "" {
		fmt.Fprintf(out, "  Format: %s\n", r.Format)
	}
	if r.SubType != "" {
		fmt.Fprintf(out, "  Type:   %s\n", r.SubType)
	}

	if r.Signer != nil {
		fmt.Fprintf(out, "  Signer: %s\n", r.Signer.Name)
		if r.Signer.SubjectSerial != "" {
			fmt.Fprintf(out, "  Serial: %s\n", r.Signer.SubjectSerial)
		}
		if r.Signer.Organization != "" {
			fmt.Fprintf(out, "  Org:    %s\n", r.Signer.Organization)
		}
		if r.Signer.Issuer != "" {
			fmt.Fprintf(out, "  Issuer: %s\n", r.Signer.Issuer)
		}
	}

	if r.SignedAt != nil {
		fmt.Fprintf(out, "  Signed: %s\n", r.SignedAt.Format(time.RFC3339))
	}

	if r.SignatureFound {
		fmt.Fprintf(out, "  Signature:   %s\n", mark(r.SignatureValid))
		fmt.Fprintf(out, "  Cert Chain:  %s\n", mark(r.CertChainValid))
		revokeStatus := mark(r.NotRevoked)
		if skipOCSP && r.NotRevoked && len(r.Warnings) > 0 {
			revokeStatus = "⚠ (soft-fail)"
		}
		fmt.Fprintf(out, "  Not Revoked: %s\n", revokeStatus)
	}

	for _, e := range r.Errors {
		fmt.Fprintf(out, "  ✗ %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "  ⚠ %s\n", w)
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
