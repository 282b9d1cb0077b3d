// Package fatturalib provides a public API for classifying, validating and
// rendering Italian FatturaPA e-invoices.
//
// A document is classified as Ordinaria or Semplificata before anything
// else can be done with it:
//
//	proc, err := fatturalib.New(fatturalib.WithResources("/srv/fattura"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, err := proc.Open(ctx, xmlText)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	page, err := proc.ToHTML(ctx, doc)
package fatturalib

import (
	"github.com/rezonia/fattura-processor/internal/detect"
	"github.com/rezonia/fattura-processor/internal/document"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/render"
	"github.com/rezonia/fattura-processor/internal/resource"
	"github.com/rezonia/fattura-processor/internal/schema"
	"github.com/rezonia/fattura-processor/internal/signature"
	"github.com/rezonia/fattura-processor/internal/signature/trust"
	"github.com/rezonia/fattura-processor/internal/summary"
)

// Re-export core types for public API
type (
	Document           = document.Document
	SubType            = model.SubType
	ValidationResult   = model.ValidationResult
	Verdict            = model.Verdict
	Detection          = detect.Detection
	Summary            = summary.Summary
	VerificationResult = signature.VerificationResult
)

// Capabilities consumed by a Processor
type (
	Store       = resource.Store
	Validator   = schema.Validator
	Transformer = render.Transformer
	Printer     = render.Printer
	TrustStore  = trust.TrustStore
)

// Trust store construction
var (
	NewTrustStore = trust.NewTrustStore
	TrustPEMFile  = trust.WithPEMFile
	TrustSoftFail = trust.WithSoftFail
)

// Re-export sub-types
const (
	Undetermined = model.Undetermined
	Ordinaria    = model.Ordinaria
	Semplificata = model.Semplificata
)

// Re-export verdicts
const (
	VerdictValid   = model.VerdictValid
	VerdictInvalid = model.VerdictInvalid
	VerdictUnknown = model.VerdictUnknown
)

// Re-export error sentinels for errors.Is
var (
	ErrParse                 = model.ErrParse
	ErrValidationUnavailable = model.ErrValidationUnavailable
	ErrUnrecognizedFormat    = model.ErrUnrecognizedFormat
	ErrPrecondition          = model.ErrPrecondition
	ErrResourceNotFound      = model.ErrResourceNotFound
	ErrTransformationFailed  = model.ErrTransformationFailed
)

// Re-export error types
type (
	ParseError                 = model.ParseError
	ValidationUnavailableError = model.ValidationUnavailableError
	UnrecognizedFormatError    = model.UnrecognizedFormatError
	PreconditionError          = model.PreconditionError
	ResourceNotFoundError      = model.ResourceNotFoundError
	TransformationFailedError  = model.TransformationFailedError
)
