package schema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/resource"
)

const (
	xmllintBinary   = "xmllint"
	documentFile    = "fattura.xml"
	defaultTimeout  = 30 * time.Second
	engineName      = "xmllint"
	unavailableNote = "xmllint tool not available"
)

// xmllint exit codes that mean "the document was checked and rejected"
var documentExitCodes = map[int]bool{
	1: true, // document not well-formed
	3: true, // DTD validation error
	4: true, // schema validation error
}

// XMLLint validates documents with the external xmllint tool. The main schema
// and every support schema in the store are written to a private work
// directory after their remote imports are patched to local names.
type XMLLint struct {
	store      resource.Store
	binaryPath string
	available  bool
	timeout    time.Duration
	references map[string]string
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// XMLLintOption configures an XMLLint validator
type XMLLintOption func(*XMLLint)

// WithBinary sets the xmllint executable (name or path)
func WithBinary(path string) XMLLintOption {
	return func(v *XMLLint) {
		if path != "" {
			v.binaryPath, v.available = detectBinary(path)
		}
	}
}

// WithTimeout bounds each xmllint run
func WithTimeout(d time.Duration) XMLLintOption {
	return func(v *XMLLint) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithReferences adds remote-to-local schema substitutions
func WithReferences(refs map[string]string) XMLLintOption {
	return func(v *XMLLint) {
		for remote, local := range refs {
			v.references[remote] = local
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) XMLLintOption {
	return func(v *XMLLint) {
		v.logger = l
	}
}

// WithMetrics records verdicts and engine durations
func WithMetrics(m *metrics.Metrics) XMLLintOption {
	return func(v *XMLLint) {
		v.metrics = m
	}
}

// NewXMLLint creates an xmllint-backed validator loading schemas from store
func NewXMLLint(store resource.Store, opts ...XMLLintOption) *XMLLint {
	path, available := detectBinary(xmllintBinary)
	v := &XMLLint{
		store:      store,
		binaryPath: path,
		available:  available,
		timeout:    defaultTimeout,
		references: make(map[string]string, len(RemoteReferences)),
		logger:     zerolog.Nop(),
	}
	for remote, local := range RemoteReferences {
		v.references[remote] = local
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsAvailable returns whether the xmllint tool was found
func (v *XMLLint) IsAvailable() bool {
	return v.available
}

// Validate checks xmlText against the named schema. Without xmllint the
// verdict is Unknown.
func (v *XMLLint) Validate(ctx context.Context, xmlText, schemaName string) (model.ValidationResult, error) {
	if !v.available {
		v.metrics.RecordValidation(schemaName, string(model.VerdictUnknown))
		return model.Unknown(schemaName, unavailableNote), nil
	}

	mainSchema, err := v.store.Load(ctx, resource.KindSchema, schemaName)
	if err != nil {
		return model.ValidationResult{}, err
	}

	dir, err := os.MkdirTemp("", "fattura-xsd-*")
	if err != nil {
		return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, fmt.Errorf("failed to create work dir: %w", err))
	}
	defer os.RemoveAll(dir)

	schemaFile, err := v.materialize(ctx, dir, schemaName, mainSchema)
	if err != nil {
		return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, err)
	}

	docPath := filepath.Join(dir, documentFile)
	if err := os.WriteFile(docPath, []byte(StripSchemaLocationHint(xmlText)), 0o600); err != nil {
		return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, fmt.Errorf("failed to write document: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, v.binaryPath, "--noout", "--nonet", "--schema", schemaFile, docPath)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)
	v.metrics.ObserveEngine(engineName, elapsed)

	result, err := v.interpret(ctx, schemaName, dir, runErr, stderr.String())
	log := v.logger.Debug()
	if err != nil {
		log = v.logger.Warn().Err(err)
	}
	log.
		Str("schema", schemaName).
		Str("verdict", string(result.Verdict)).
		Dur("duration_ms", elapsed).
		Msg("schema validation completed")

	if err != nil {
		return model.ValidationResult{}, err
	}
	v.metrics.RecordValidation(schemaName, string(result.Verdict))
	return result, nil
}

// materialize writes the support schemas and the main schema into dir and
// returns the main schema path
func (v *XMLLint) materialize(ctx context.Context, dir, schemaName, mainSchema string) (string, error) {
	mainFile := resource.Identifier(resource.KindSchema, schemaName)
	mainFile = filepath.Base(mainFile)

	support, err := v.store.List(ctx, resource.KindSchema)
	if err != nil {
		return "", fmt.Errorf("failed to list support schemas: %w", err)
	}
	for _, name := range support {
		if name == mainFile {
			continue
		}
		content, err := v.store.Load(ctx, resource.KindSchema, name)
		if err != nil {
			return "", fmt.Errorf("failed to load support schema %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(PatchSchemaLocations(content, v.references)), 0o600); err != nil {
			return "", fmt.Errorf("failed to write support schema %s: %w", name, err)
		}
	}

	path := filepath.Join(dir, mainFile)
	if err := os.WriteFile(path, []byte(PatchSchemaLocations(mainSchema, v.references)), 0o600); err != nil {
		return "", fmt.Errorf("failed to write schema: %w", err)
	}
	return path, nil
}

func (v *XMLLint) interpret(ctx context.Context, schemaName, dir string, runErr error, stderr string) (model.ValidationResult, error) {
	if runErr == nil {
		return model.Valid(schemaName), nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, ctxErr)
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, runErr)
	}

	messages := errorLines(stderr, dir)
	if documentExitCodes[exitErr.ExitCode()] {
		return model.Invalid(schemaName, messages...), nil
	}

	cause := fmt.Errorf("xmllint exited with code %d", exitErr.ExitCode())
	if len(messages) > 0 {
		cause = fmt.Errorf("xmllint exited with code %d: %s", exitErr.ExitCode(), strings.Join(messages, "; "))
	}
	return model.ValidationResult{}, model.NewValidationUnavailableError(schemaName, cause)
}

// errorLines returns xmllint diagnostics without work-dir paths and without
// the trailing "fails to validate" summary
func errorLines(stderr, dir string) []string {
	lines := make([]string, 0)
	summary := ""
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, dir+string(os.PathSeparator), ""))
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "fails to validate") {
			summary = line
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 && summary != "" {
		lines = append(lines, summary)
	}
	return lines
}

// detectBinary resolves an executable name or path
func detectBinary(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return name, false
	}
	return path, true
}
