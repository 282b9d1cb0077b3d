package model

// Verdict is the outcome of validating a document against a schema
type Verdict string

const (
	// VerdictValid means the document conforms to the schema
	VerdictValid Verdict = "valid"
	// VerdictInvalid means the document was checked and does not conform
	VerdictInvalid Verdict = "invalid"
	// VerdictUnknown means no validation engine was available to check the document.
	// It is never the same as VerdictInvalid.
	VerdictUnknown Verdict = "unknown"
)

// ValidationResult holds the outcome of a schema validation
type ValidationResult struct {
	Verdict Verdict  `json:"verdict"`
	Schema  string   `json:"schema,omitempty"`
	Errors  []string `json:"errors"`
}

// NewValidationResult creates a result with an empty error list
func NewValidationResult(schema string, verdict Verdict) ValidationResult {
	return ValidationResult{
		Verdict: verdict,
		Schema:  schema,
		Errors:  make([]string, 0),
	}
}

// Valid returns a result for a conforming document
func Valid(schema string) ValidationResult {
	return NewValidationResult(schema, VerdictValid)
}

// Invalid returns a result for a non-conforming document
func Invalid(schema string, errs ...string) ValidationResult {
	r := NewValidationResult(schema, VerdictInvalid)
	r.Errors = append(r.Errors, errs...)
	return r
}

// Unknown returns a result for an environment without a validation engine
func Unknown(schema string, reason string) ValidationResult {
	r := NewValidationResult(schema, VerdictUnknown)
	if reason != "" {
		r.Errors = append(r.Errors, reason)
	}
	return r
}

// IsValid returns true only for VerdictValid
func (r ValidationResult) IsValid() bool {
	return r.Verdict == VerdictValid
}
