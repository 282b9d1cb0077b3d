package fatturalib

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rezonia/fattura-processor/internal/config"
	"github.com/rezonia/fattura-processor/internal/detect"
	"github.com/rezonia/fattura-processor/internal/document"
	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/render"
	"github.com/rezonia/fattura-processor/internal/resource"
	"github.com/rezonia/fattura-processor/internal/schema"
	"github.com/rezonia/fattura-processor/internal/signature"
	"github.com/rezonia/fattura-processor/internal/signature/trust"
	"github.com/rezonia/fattura-processor/internal/signature/xades"
	"github.com/rezonia/fattura-processor/internal/summary"
)

// Processor wires the detector, validator, renderers and signature verifier
// around one resource store
type Processor struct {
	store       resource.Store
	validator   schema.Validator
	transformer render.Transformer
	printer     render.Printer
	trustStore  *trust.TrustStore

	detector  *detect.Detector
	renderer  *render.Renderer
	verifiers *signature.VerifierRegistry

	logger  zerolog.Logger
	metrics *metrics.Metrics
	config  *config.Config
}

// Option configures a Processor
type Option func(*Processor)

// WithResources serves schemas and stylesheets from a directory
func WithResources(dir string) Option {
	return func(p *Processor) {
		p.store = resource.NewDirStore(dir)
	}
}

// WithStore sets the resource store
func WithStore(s Store) Option {
	return func(p *Processor) {
		p.store = s
	}
}

// WithValidator replaces the xmllint validator
func WithValidator(v Validator) Option {
	return func(p *Processor) {
		p.validator = v
	}
}

// WithTransformer replaces the xsltproc transformer
func WithTransformer(t Transformer) Option {
	return func(p *Processor) {
		p.transformer = t
	}
}

// WithPrinter replaces the headless Chromium printer
func WithPrinter(pr Printer) Option {
	return func(p *Processor) {
		p.printer = pr
	}
}

// WithTrustStore sets the certificates trusted for signature verification
func WithTrustStore(ts *trust.TrustStore) Option {
	return func(p *Processor) {
		p.trustStore = ts
	}
}

// WithLogger sets the logger handed to every component
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = l
	}
}

// WithMetrics records detections, validations and renders
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// New creates a processor from the default configuration
func New(opts ...Option) (*Processor, error) {
	return NewFromConfig(config.Default(), opts...)
}

// NewFromConfig creates a processor from cfg. Options override the
// components cfg would build.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Processor, error) {
	p := &Processor{
		logger: zerolog.Nop(),
		config: cfg,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.store == nil {
		p.store = resource.NewDirStore(cfg.Resources)
	}
	if p.validator == nil {
		p.validator = schema.NewXMLLint(p.store,
			schema.WithBinary(cfg.Tools.XMLLint),
			schema.WithTimeout(cfg.Timeouts.Validate),
			schema.WithReferences(cfg.RemoteReferences),
			schema.WithLogger(p.component("schema")),
			schema.WithMetrics(p.metrics),
		)
	}
	if p.transformer == nil {
		p.transformer = render.NewXSLTProc(cfg.Tools.XSLTProc, cfg.Timeouts.Transform, p.metrics)
	}
	if p.printer == nil {
		p.printer = render.NewChrome(cfg.Tools.Chrome, cfg.Timeouts.Print, p.component("chrome"), p.metrics)
	}
	if p.trustStore == nil {
		trustOpts := []trust.TrustStoreOption{
			trust.WithSoftFail(cfg.Trust.SoftFail),
			trust.WithOCSPTimeout(cfg.Trust.OCSPTimeout),
		}
		for _, path := range cfg.Trust.PEMFiles {
			trustOpts = append(trustOpts, trust.WithPEMFile(path))
		}
		ts, err := trust.NewTrustStore(trustOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load trust store: %w", err)
		}
		p.trustStore = ts
	}

	p.detector = detect.New(p.validator,
		detect.WithLogger(p.component("detect")),
		detect.WithMetrics(p.metrics),
	)
	p.renderer = render.New(p.store, p.transformer,
		render.WithPrinter(p.printer),
		render.WithLogger(p.component("render")),
		render.WithMetrics(p.metrics),
	)
	p.verifiers = signature.NewVerifierRegistry()
	p.verifiers.Register(xades.NewVerifier(p.trustStore, xades.WithLogger(p.component("signature"))))

	return p, nil
}

func (p *Processor) component(name string) zerolog.Logger {
	return p.logger.With().Str("component", name).Logger()
}

// Open creates a document with the default processor and classifies it
func Open(ctx context.Context, raw string, opts ...Option) (*Document, error) {
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return p.Open(ctx, raw)
}

// Parse creates an unclassified document
func (p *Processor) Parse(raw string) (*Document, error) {
	return document.New(raw)
}

// Open creates a document and classifies it
func (p *Processor) Open(ctx context.Context, raw string) (*Document, error) {
	return document.Open(ctx, raw, p.detector)
}

// Detect classifies doc and records the sub-type on it
func (p *Processor) Detect(ctx context.Context, doc *Document) (SubType, error) {
	return doc.PopulateSubType(ctx, p.detector)
}

// DetectDetailed classifies raw text and reports which phase decided
func (p *Processor) DetectDetailed(ctx context.Context, raw string) (Detection, error) {
	return p.detector.DetectDetailed(ctx, raw)
}

// Validate checks doc against the schema of its detected sub-type
func (p *Processor) Validate(ctx context.Context, doc *Document) (ValidationResult, error) {
	subType, err := doc.RequireSubType("validate")
	if err != nil {
		return ValidationResult{}, err
	}
	name, err := subType.SchemaName()
	if err != nil {
		return ValidationResult{}, err
	}

	result, err := p.validator.Validate(ctx, doc.Raw(), name)
	if err != nil {
		if errors.Is(err, model.ErrValidationUnavailable) || errors.Is(err, model.ErrResourceNotFound) {
			return ValidationResult{}, err
		}
		return ValidationResult{}, model.NewValidationUnavailableError(name, err)
	}
	return result, nil
}

// ToJSON returns the parsed structure as indented JSON
func (p *Processor) ToJSON(doc *Document) ([]byte, error) {
	return p.renderer.JSON(doc)
}

// ToHTML applies the sub-type's stylesheet
func (p *Processor) ToHTML(ctx context.Context, doc *Document) (string, error) {
	return p.renderer.HTML(ctx, doc)
}

// ToHTMLFromStylesheet applies a caller-supplied stylesheet
func (p *Processor) ToHTMLFromStylesheet(ctx context.Context, doc *Document, xsl string) (string, error) {
	return p.renderer.HTMLFromStylesheet(ctx, doc, xsl)
}

// ToPDF prints the HTML rendering to PDF
func (p *Processor) ToPDF(ctx context.Context, doc *Document) ([]byte, error) {
	return p.renderer.PDF(ctx, doc)
}

// Summarize extracts header facts and totals
func (p *Processor) Summarize(doc *Document) (*Summary, error) {
	return summary.Summarize(doc)
}

// VerifySignature checks the enveloped signature of a signed FatturaPA file
func (p *Processor) VerifySignature(ctx context.Context, data []byte) (*VerificationResult, error) {
	return p.verifiers.Verify(ctx, data)
}

// Capabilities reports which external engines are usable
type Capabilities struct {
	Validation     bool     `json:"validation"`
	Transformation bool     `json:"transformation"`
	Printing       bool     `json:"printing"`
	Signatures     []string `json:"signatures"`
	TrustedCerts   int      `json:"trusted_certs"`
}

type availability interface {
	IsAvailable() bool
}

// Capabilities reports the state of the configured engines. Components
// that cannot report availability count as available.
func (p *Processor) Capabilities() Capabilities {
	return Capabilities{
		Validation:     available(p.validator),
		Transformation: available(p.transformer),
		Printing:       available(p.printer),
		Signatures:     p.verifiers.AvailableFormats(),
		TrustedCerts:   p.trustStore.Len(),
	}
}

func available(component any) bool {
	if component == nil {
		return false
	}
	if _, ok := component.(schema.Unavailable); ok {
		return false
	}
	if a, ok := component.(availability); ok {
		return a.IsAvailable()
	}
	return true
}

// Store returns the resource store
func (p *Processor) Store() Store {
	return p.store
}

// Config returns the configuration the processor was built from
func (p *Processor) Config() *config.Config {
	return p.config
}
