// Package schema validates FatturaPA documents against XSD schemas.
package schema

import (
	"context"

	"github.com/rezonia/fattura-processor/internal/model"
)

// Validator checks a document against a named schema.
//
// An Invalid verdict means the document was checked and does not conform.
// A returned error means the engine itself failed and nothing can be said
// about the document.
type Validator interface {
	Validate(ctx context.Context, xmlText, schemaName string) (model.ValidationResult, error)
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(ctx context.Context, xmlText, schemaName string) (model.ValidationResult, error)

// Validate calls f
func (f ValidatorFunc) Validate(ctx context.Context, xmlText, schemaName string) (model.ValidationResult, error) {
	return f(ctx, xmlText, schemaName)
}

// Unavailable is the validator for environments without a schema engine.
// Every document gets an Unknown verdict.
type Unavailable struct {
	Reason string
}

// Validate returns an Unknown verdict
func (u Unavailable) Validate(ctx context.Context, xmlText, schemaName string) (model.ValidationResult, error) {
	reason := u.Reason
	if reason == "" {
		reason = "schema validation is not available in this environment"
	}
	return model.Unknown(schemaName, reason), nil
}
