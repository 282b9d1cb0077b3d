package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/internal/config"
	"github.com/rezonia/fattura-processor/internal/logger"
	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	configFile   string
	resourcesDir string
	xmllintPath  string
	xsltprocPath string
	chromePath   string
	logLevel     string

	// Resolved by initConfig before every command
	cfg *config.Config
	log = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "fattura-processor",
	Short: "Classify, validate and render FatturaPA e-invoices",
	Long: `Fattura Processor works with Italian FatturaPA electronic invoices.

Supports:
  - Sub-type detection: FatturaOrdinaria (FPR12/FPA12) and FatturaSemplificata (FSM10)
  - XSD validation through xmllint
  - Rendering to JSON, HTML (xsltproc) and PDF (headless Chrome)
  - XAdES enveloped signature verification

Examples:
  # Detect the sub-type of an invoice
  fattura-processor detect IT01234567890_FPR02.xml

  # Validate every invoice in a directory
  fattura-processor validate invoices/

  # Render a PDF
  fattura-processor render --format pdf -o out.pdf invoice.xml

  # Start the HTTP API
  fattura-processor serve --addr :8080`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "report", "r", "table", "Report format (json, table)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&resourcesDir, "resources", "", "Directory holding schemas/ and styles/ (env: FATTURA_RESOURCES)")
	rootCmd.PersistentFlags().StringVar(&xmllintPath, "xmllint", "", "xmllint executable (env: FATTURA_XMLLINT)")
	rootCmd.PersistentFlags().StringVar(&xsltprocPath, "xsltproc", "", "xsltproc executable (env: FATTURA_XSLTPROC)")
	rootCmd.PersistentFlags().StringVar(&chromePath, "chrome", "", "Chrome or Chromium executable (env: FATTURA_CHROME)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: FATTURA_LOG_LEVEL)")
}

// initConfig resolves configuration: flags over environment over file over defaults
func initConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	c.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("resources") {
		c.Resources = resourcesDir
	}
	if flags.Changed("xmllint") {
		c.Tools.XMLLint = xmllintPath
	}
	if flags.Changed("xsltproc") {
		c.Tools.XSLTProc = xsltprocPath
	}
	if flags.Changed("chrome") {
		c.Tools.Chrome = chromePath
	}

	switch {
	case flags.Changed("log-level"):
		c.Log.Level = logLevel
	case verbose:
		c.Log.Level = "debug"
		c.Log.Pretty = true
	case cmd.Name() != "serve" && configFile == "" && os.Getenv(config.EnvLogLevel) == "":
		// one-shot commands only log problems unless asked
		c.Log.Level = "warn"
	}

	if err := c.Validate(); err != nil {
		return err
	}
	if outputFormat != "json" && outputFormat != "table" {
		return fmt.Errorf("unsupported report format %q (use json or table)", outputFormat)
	}

	cfg = c
	log = logger.New(logger.Config{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return nil
}

func newProcessor(opts ...fatturalib.Option) (*fatturalib.Processor, error) {
	opts = append([]fatturalib.Option{fatturalib.WithLogger(log.Zerolog())}, opts...)
	return fatturalib.NewFromConfig(cfg, opts...)
}

func printVerbose(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
