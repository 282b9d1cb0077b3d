package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
)

const chromeEngine = "chrome"

// chromeCandidates are tried in order when no binary is configured
var chromeCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"headless_shell",
}

// Chrome prints HTML to PDF with a headless Chromium
type Chrome struct {
	binaryPath string
	available  bool
	timeout    time.Duration
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// NewChrome creates a printer. An empty binary searches PATH for a Chromium build.
func NewChrome(binary string, timeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Chrome {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	path, available := detectChrome(binary)
	return &Chrome{
		binaryPath: path,
		available:  available,
		timeout:    timeout,
		logger:     logger,
		metrics:    m,
	}
}

// IsAvailable returns whether a Chromium binary was found
func (c *Chrome) IsAvailable() bool {
	return c.available
}

// Print renders page on A4 with 15 mm margins and returns the checked PDF
func (c *Chrome) Print(ctx context.Context, page string) ([]byte, error) {
	if !c.available {
		return nil, model.NewTransformationFailedError(chromeEngine, "headless chromium not available", nil)
	}

	styled, err := InjectPrintStyle(page)
	if err != nil {
		return nil, model.NewTransformationFailedError(chromeEngine, "could not prepare page", err)
	}

	dir, err := os.MkdirTemp("", "fattura-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	htmlPath := filepath.Join(dir, "fattura.html")
	pdfPath := filepath.Join(dir, "fattura.pdf")
	if err := os.WriteFile(htmlPath, []byte(styled), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write page: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath,
		"--headless",
		"--disable-gpu",
		"--no-sandbox",
		"--no-pdf-header-footer",
		"--user-data-dir="+filepath.Join(dir, "profile"),
		"--print-to-pdf="+pdfPath,
		"file://"+filepath.ToSlash(htmlPath),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	c.metrics.ObserveEngine(chromeEngine, time.Since(start))
	if err != nil {
		c.logger.Debug().Str("stderr", stderr.String()).Msg("chromium stderr")
		return nil, model.NewTransformationFailedError(chromeEngine, "print to pdf failed", err)
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil || len(data) == 0 {
		return nil, model.NewTransformationFailedError(chromeEngine, "no PDF produced", err)
	}

	pages, err := CheckPDF(data)
	if err != nil {
		return nil, model.NewTransformationFailedError(chromeEngine, "unusable PDF produced", err)
	}

	c.logger.Debug().Int("pages", pages).Int("bytes", len(data)).Msg("pdf printed")
	return data, nil
}

func detectChrome(binary string) (string, bool) {
	if strings.TrimSpace(binary) != "" {
		return lookTool(binary)
	}
	for _, name := range chromeCandidates {
		if path, ok := lookTool(name); ok {
			return path, true
		}
	}
	return chromeCandidates[0], false
}
