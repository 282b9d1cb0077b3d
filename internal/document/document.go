// Package document holds the in-memory model of one FatturaPA invoice.
package document

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/structure"
)

// Detector classifies raw invoice text
type Detector interface {
	Detect(ctx context.Context, raw string) (model.SubType, error)
}

// Document is one invoice: the raw text, the tree parsed from it, and the
// detected sub-type. Raw text and structure never change after New; only
// the sub-type is written, by PopulateSubType.
type Document struct {
	raw       string
	structure *structure.Map

	mu      sync.RWMutex
	subType model.SubType
}

// New parses raw eagerly. Empty or malformed text is a ParseError.
func New(raw string) (*Document, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, model.NewParseError("document", "empty input", nil)
	}

	tree, err := structure.Parse(raw)
	if err != nil {
		return nil, model.NewParseError("document", "not well-formed XML", err)
	}

	return &Document{
		raw:       raw,
		structure: tree,
		subType:   model.Undetermined,
	}, nil
}

// NewFromBytes creates a Document from raw bytes
func NewFromBytes(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, model.NewParseError("document", "empty input", nil)
	}
	return New(string(data))
}

// NewFromReader reads r fully and creates a Document
func NewFromReader(r io.Reader) (*Document, error) {
	if r == nil {
		return nil, model.NewParseError("document", "no input", nil)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError("document", "failed to read input", err)
	}
	return NewFromBytes(data)
}

// Raw returns the original document text
func (d *Document) Raw() string {
	return d.raw
}

// Structure returns the parsed tree. Callers must not modify it.
func (d *Document) Structure() *structure.Map {
	return d.structure
}

// RootName returns the document element name, e.g. p:FatturaElettronica
func (d *Document) RootName() string {
	name, _ := d.structure.Root()
	return name
}

// SubType returns the detected sub-type, Undetermined until detection ran
func (d *Document) SubType() model.SubType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.subType
}

// PopulateSubType runs det on the raw text and stores the result. On error
// the previous sub-type is kept.
func (d *Document) PopulateSubType(ctx context.Context, det Detector) (model.SubType, error) {
	if det == nil {
		return model.Undetermined, fmt.Errorf("no detector configured")
	}

	subType, err := det.Detect(ctx, d.raw)
	if err != nil {
		return model.Undetermined, err
	}

	d.mu.Lock()
	d.subType = subType
	d.mu.Unlock()
	return subType, nil
}

// RequireSubType returns the sub-type, or a PreconditionError naming op when
// the document has not been classified
func (d *Document) RequireSubType(op string) (model.SubType, error) {
	subType := d.SubType()
	if !subType.IsKnown() {
		return model.Undetermined, model.NewPreconditionError(op)
	}
	return subType, nil
}

// Open creates a Document and classifies it
func Open(ctx context.Context, raw string, det Detector) (*Document, error) {
	doc, err := New(raw)
	if err != nil {
		return nil, err
	}
	if _, err := doc.PopulateSubType(ctx, det); err != nil {
		return nil, err
	}
	return doc, nil
}
