package server

import (
	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status       string                  `json:"status"`
	Time         string                  `json:"time"`
	Capabilities fatturalib.Capabilities `json:"capabilities"`
}

// DetectResponse is the response for the detect endpoint
type DetectResponse struct {
	SubType  fatturalib.SubType `json:"subtype"`
	Phase    string             `json:"phase"`
	Schema   string             `json:"schema,omitempty"`
	Versione string             `json:"versione,omitempty"`
	Tried    []string           `json:"tried"`
}

// ValidationResponse is the response for the validate endpoint
type ValidationResponse struct {
	SubType fatturalib.SubType `json:"subtype"`
	Valid   bool               `json:"valid"`
	fatturalib.ValidationResult
}

// InfoResponse is the response for the info endpoint
type InfoResponse struct {
	Size    int                 `json:"size"`
	Root    string              `json:"root"`
	Summary *fatturalib.Summary `json:"summary"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	RequestID string   `json:"request_id,omitempty"`
	Tried     []string `json:"tried,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}
