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

	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
)

const xsltprocBinary = "xsltproc"

// XSLTProc runs stylesheets with the external xsltproc tool
type XSLTProc struct {
	binaryPath string
	available  bool
	timeout    time.Duration
	metrics    *metrics.Metrics
}

// NewXSLTProc creates a transformer. An empty binary means xsltproc on PATH.
func NewXSLTProc(binary string, timeout time.Duration, m *metrics.Metrics) *XSLTProc {
	if binary == "" {
		binary = xsltprocBinary
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	path, available := lookTool(binary)
	return &XSLTProc{
		binaryPath: path,
		available:  available,
		timeout:    timeout,
		metrics:    m,
	}
}

// IsAvailable returns whether xsltproc was found
func (x *XSLTProc) IsAvailable() bool {
	return x.available
}

// Transform applies xslText to xmlText. Empty output is a failure.
func (x *XSLTProc) Transform(ctx context.Context, xmlText, xslText string) (string, error) {
	if !x.available {
		return "", model.NewTransformationFailedError(xsltprocBinary, "xsltproc tool not available", nil)
	}

	dir, err := os.MkdirTemp("", "fattura-xslt-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	xslPath := filepath.Join(dir, "style.xsl")
	xmlPath := filepath.Join(dir, "fattura.xml")
	if err := os.WriteFile(xslPath, []byte(xslText), 0o600); err != nil {
		return "", fmt.Errorf("failed to write stylesheet: %w", err)
	}
	if err := os.WriteFile(xmlPath, []byte(xmlText), 0o600); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, x.binaryPath, "--nonet", xslPath, xmlPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	x.metrics.ObserveEngine(xsltprocBinary, time.Since(start))
	if err != nil {
		msg := strings.TrimSpace(strings.ReplaceAll(stderr.String(), dir+string(os.PathSeparator), ""))
		if msg == "" {
			msg = "xsltproc failed"
		}
		return "", model.NewTransformationFailedError(xsltprocBinary, msg, err)
	}

	if strings.TrimSpace(stdout.String()) == "" {
		return "", model.NewTransformationFailedError(xsltprocBinary, "stylesheet produced an empty result", nil)
	}
	return stdout.String(), nil
}

// lookTool resolves an executable name or path
func lookTool(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return name, false
	}
	return path, true
}
