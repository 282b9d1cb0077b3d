package model

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below
var (
	ErrParse                 = errors.New("parse error")
	ErrValidationUnavailable = errors.New("validation unavailable")
	ErrUnrecognizedFormat    = errors.New("unrecognized format")
	ErrPrecondition          = errors.New("precondition failed")
	ErrResourceNotFound      = errors.New("resource not found")
	ErrTransformationFailed  = errors.New("transformation failed")
)

// ParseError represents malformed or empty input at document construction
type ParseError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse error: %s: %s (%v)", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError creates a new parse error
func NewParseError(field, message string, cause error) *ParseError {
	return &ParseError{
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationUnavailableError means the validation engine itself failed.
// The document could not be validated; it was not found invalid.
type ValidationUnavailableError struct {
	Schema string
	Cause  error
}

func (e *ValidationUnavailableError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("could not be validated against %s: %v", e.Schema, e.Cause)
	}
	return fmt.Sprintf("could not be validated: %v", e.Cause)
}

func (e *ValidationUnavailableError) Unwrap() error {
	return e.Cause
}

func (e *ValidationUnavailableError) Is(target error) bool {
	return target == ErrValidationUnavailable
}

// NewValidationUnavailableError creates a new validation-unavailable error
func NewValidationUnavailableError(schema string, cause error) *ValidationUnavailableError {
	return &ValidationUnavailableError{
		Schema: schema,
		Cause:  cause,
	}
}

// UnrecognizedFormatError means neither schema validation nor the versione
// attribute could classify the document
type UnrecognizedFormatError struct {
	Versione string
	Tried    []string
}

func (e *UnrecognizedFormatError) Error() string {
	if e.Versione != "" {
		return fmt.Sprintf("unrecognized invoice format: not valid against %v and versione %q is not recognized", e.Tried, e.Versione)
	}
	return fmt.Sprintf("unrecognized invoice format: not valid against %v and no versione attribute found", e.Tried)
}

func (e *UnrecognizedFormatError) Is(target error) bool {
	return target == ErrUnrecognizedFormat
}

// NewUnrecognizedFormatError creates a new unrecognized-format error
func NewUnrecognizedFormatError(versione string, tried []string) *UnrecognizedFormatError {
	return &UnrecognizedFormatError{
		Versione: versione,
		Tried:    tried,
	}
}

// PreconditionError means an operation needing a known sub-type ran before detection
type PreconditionError struct {
	Operation string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s requires a detected sub-type: document not yet classified, run detection first", e.Operation)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// NewPreconditionError creates a new precondition error
func NewPreconditionError(operation string) *PreconditionError {
	return &PreconditionError{Operation: operation}
}

// ResourceNotFoundError means a schema or stylesheet asset is missing
type ResourceNotFoundError struct {
	Kind       string
	Identifier string
	Cause      error
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Identifier)
}

func (e *ResourceNotFoundError) Unwrap() error {
	return e.Cause
}

func (e *ResourceNotFoundError) Is(target error) bool {
	return target == ErrResourceNotFound
}

// NewResourceNotFoundError creates a new resource-not-found error
func NewResourceNotFoundError(kind, identifier string, cause error) *ResourceNotFoundError {
	return &ResourceNotFoundError{
		Kind:       kind,
		Identifier: identifier,
		Cause:      cause,
	}
}

// TransformationFailedError means a rendering engine produced no usable output
type TransformationFailedError struct {
	Engine  string
	Message string
	Cause   error
}

func (e *TransformationFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transformation failed [%s]: %s (%v)", e.Engine, e.Message, e.Cause)
	}
	return fmt.Sprintf("transformation failed [%s]: %s", e.Engine, e.Message)
}

func (e *TransformationFailedError) Unwrap() error {
	return e.Cause
}

func (e *TransformationFailedError) Is(target error) bool {
	return target == ErrTransformationFailed
}

// NewTransformationFailedError creates a new transformation error
func NewTransformationFailedError(engine, message string, cause error) *TransformationFailedError {
	return &TransformationFailedError{
		Engine:  engine,
		Message: message,
		Cause:   cause,
	}
}
