package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	renderFormat     string
	renderOutput     string
	renderStylesheet string
)

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render an invoice as JSON, HTML or PDF",
	Long: `Render a FatturaPA invoice.

Formats:
  - json: the document structure as ordered JSON
  - html: the sub-type stylesheet applied with xsltproc
  - pdf:  the HTML printed by headless Chrome

JSON and HTML go to stdout unless -o is given. PDF defaults to the input
file name with a .pdf extension.

Examples:
  fattura-processor render --format json invoice.xml
  fattura-processor render --format html -o invoice.html invoice.xml
  fattura-processor render --format html --stylesheet custom.xsl invoice.xml
  fattura-processor render --format pdf invoice.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "html", "Output format (json, html, pdf)")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output file")
	renderCmd.Flags().StringVar(&renderStylesheet, "stylesheet", "", "XSLT stylesheet to use instead of the sub-type default (html only)")
}

func runRender(cmd *cobra.Command, args []string) error {
	file := args[0]
	format := strings.ToLower(renderFormat)
	if format != "json" && format != "html" && format != "pdf" {
		return fmt.Errorf("unsupported render format %q (use json, html or pdf)", renderFormat)
	}
	if renderStylesheet != "" && format != "html" {
		return fmt.Errorf("--stylesheet only applies to html output")
	}

	raw, err := readInvoice(file)
	if err != nil {
		return err
	}

	proc, err := newProcessor()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	doc, err := proc.Open(ctx, raw)
	if err != nil {
		return err
	}
	printVerbose(cmd, "Rendering %s (%s) as %s\n", file, doc.SubType(), format)

	dest := renderOutput
	var output []byte
	switch format {
	case "json":
		output, err = proc.ToJSON(doc)
		output = append(output, '\n')
	case "html":
		var page string
		if renderStylesheet != "" {
			xsl, readErr := os.ReadFile(renderStylesheet)
			if readErr != nil {
				return fmt.Errorf("failed to read stylesheet: %w", readErr)
			}
			page, err = proc.ToHTMLFromStylesheet(ctx, doc, string(xsl))
		} else {
			page, err = proc.ToHTML(ctx, doc)
		}
		output = []byte(page)
	case "pdf":
		output, err = proc.ToPDF(ctx, doc)
		if dest == "" {
			dest = strings.TrimSuffix(file, filepath.Ext(file)) + ".pdf"
		}
	}
	if err != nil {
		return err
	}

	if dest == "" || dest == "-" {
		_, err := cmd.OutOrStdout().Write(output)
		return err
	}
	if err := os.WriteFile(dest, output, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printVerbose(cmd, "Wrote %s (%d bytes)\n", dest, len(output))
	return nil
}
