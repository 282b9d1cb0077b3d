// Package render turns classified FatturaPA documents into JSON, HTML and PDF.
//
// HTML goes through the sub-type's XSLT stylesheet and PDF prints that HTML.
// Every output requires a detected sub-type; renderers never classify.
package render

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/fattura-processor/internal/document"
	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/resource"
	"github.com/rezonia/fattura-processor/internal/structure"
)

// Output formats
const (
	FormatJSON = "json"
	FormatHTML = "html"
	FormatPDF  = "pdf"
)

// Transformer applies an XSLT stylesheet to a document
type Transformer interface {
	Transform(ctx context.Context, xmlText, xslText string) (string, error)
}

// Printer turns HTML into a PDF
type Printer interface {
	Print(ctx context.Context, html string) ([]byte, error)
}

// Renderer produces the output formats of a document
type Renderer struct {
	store       resource.Store
	transformer Transformer
	printer     Printer
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Renderer
type Option func(*Renderer)

// WithPrinter sets the PDF printer
func WithPrinter(p Printer) Option {
	return func(r *Renderer) {
		r.printer = p
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithMetrics records render outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Renderer) {
		r.metrics = m
	}
}

// New creates a Renderer loading stylesheets from store
func New(store resource.Store, transformer Transformer, opts ...Option) *Renderer {
	r := &Renderer{
		store:       store,
		transformer: transformer,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// JSON returns the document structure as 2-space indented JSON
func (r *Renderer) JSON(doc *document.Document) ([]byte, error) {
	if _, err := doc.RequireSubType("render json"); err != nil {
		return nil, err
	}
	out, err := MarshalStructure(doc.Structure())
	r.metrics.RecordRender(FormatJSON, err)
	return out, err
}

// HTML applies the sub-type's stylesheet to the document
func (r *Renderer) HTML(ctx context.Context, doc *document.Document) (string, error) {
	subType, err := doc.RequireSubType("render html")
	if err != nil {
		return "", err
	}

	xsl, err := resource.ForSubType(ctx, r.store, resource.KindStylesheet, subType)
	if err != nil {
		r.metrics.RecordRender(FormatHTML, err)
		return "", err
	}

	out, err := r.transform(ctx, doc, xsl)
	r.metrics.RecordRender(FormatHTML, err)
	return out, err
}

// HTMLFromStylesheet applies a caller-supplied stylesheet to the document
func (r *Renderer) HTMLFromStylesheet(ctx context.Context, doc *document.Document, xsl string) (string, error) {
	if _, err := doc.RequireSubType("render html"); err != nil {
		return "", err
	}
	if xsl == "" {
		return "", model.NewTransformationFailedError("xslt", "empty stylesheet", nil)
	}

	out, err := r.transform(ctx, doc, xsl)
	r.metrics.RecordRender(FormatHTML, err)
	return out, err
}

// PDF renders the document to HTML and prints it
func (r *Renderer) PDF(ctx context.Context, doc *document.Document) ([]byte, error) {
	subType, err := doc.RequireSubType("render pdf")
	if err != nil {
		return nil, err
	}
	if r.printer == nil {
		return nil, model.NewTransformationFailedError("pdf", "no printer configured", nil)
	}

	xsl, err := resource.ForSubType(ctx, r.store, resource.KindStylesheet, subType)
	if err != nil {
		r.metrics.RecordRender(FormatPDF, err)
		return nil, err
	}
	page, err := r.transform(ctx, doc, xsl)
	if err != nil {
		r.metrics.RecordRender(FormatPDF, err)
		return nil, err
	}

	start := time.Now()
	out, err := r.printer.Print(ctx, page)
	r.metrics.RecordRender(FormatPDF, err)
	r.logEvent(err).
		Str("format", FormatPDF).
		Int("bytes", len(out)).
		Dur("duration_ms", time.Since(start)).
		Msg("document printed")
	return out, err
}

func (r *Renderer) transform(ctx context.Context, doc *document.Document, xsl string) (string, error) {
	if r.transformer == nil {
		return "", model.NewTransformationFailedError("xslt", "no transformer configured", nil)
	}

	start := time.Now()
	out, err := r.transformer.Transform(ctx, doc.Raw(), xsl)
	r.logEvent(err).
		Str("format", FormatHTML).
		Str("subtype", doc.SubType().String()).
		Dur("duration_ms", time.Since(start)).
		Msg("stylesheet applied")
	return out, err
}

func (r *Renderer) logEvent(err error) *zerolog.Event {
	if err != nil {
		return r.logger.Error().Err(err)
	}
	return r.logger.Debug()
}

// MarshalStructure encodes a parsed tree as 2-space indented JSON, keeping
// element order
func MarshalStructure(m *structure.Map) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
