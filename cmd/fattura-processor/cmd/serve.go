package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/server"
	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for FatturaPA documents.

Documents are posted as the raw request body.

The API provides endpoints for:
  - POST /api/v1/detect       - Detect the sub-type
  - POST /api/v1/validate     - Validate against the sub-type schema
  - POST /api/v1/info         - Summarize the document
  - POST /api/v1/verify       - Verify the XAdES signature
  - POST /api/v1/render/json  - Render as JSON
  - POST /api/v1/render/html  - Render as HTML
  - POST /api/v1/render/pdf   - Render as PDF
  - GET  /health              - Health check and engine availability
  - GET  /metrics             - Prometheus metrics

Examples:
  # Start server on the configured address
  fattura-processor serve

  # Custom address and resources
  fattura-processor serve --address :9090 --resources /srv/fattura

  # Start in debug mode
  fattura-processor serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("address") {
		cfg.Server.Address = serverAddr
	}
	if flags.Changed("debug") {
		cfg.Server.Debug = serverDebug
	}
	if flags.Changed("read-timeout") {
		cfg.Server.ReadTimeout = readTimeout
	}
	if flags.Changed("write-timeout") {
		cfg.Server.WriteTimeout = writeTimeout
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	proc, err := newProcessor(fatturalib.WithMetrics(m))
	if err != nil {
		return err
	}

	caps := proc.Capabilities()
	serveLog := log.Component("serve")
	serveLog.Info().
		Bool("validation", caps.Validation).
		Bool("transformation", caps.Transformation).
		Bool("printing", caps.Printing).
		Int("trusted_certs", caps.TrustedCerts).
		Msg("engine availability")

	srv := server.NewServer(&server.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		Debug:          cfg.Server.Debug,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Timeouts.Print + cfg.Timeouts.Transform,
	}, proc, server.WithLogger(log), server.WithMetrics(m, reg))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.LogServerStart(cfg.Server.Address, cfg.Resources)
	return srv.Run(ctx)
}
