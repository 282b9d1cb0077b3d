// Package detect classifies FatturaPA documents as Ordinaria or Semplificata.
//
// Schema validation is authoritative: the document is probed against the
// Semplificata schema and then the Ordinaria schema, and the first Valid
// verdict wins. Only when neither schema accepts the document does the
// detector fall back to the versione attribute of the root element.
package detect

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rezonia/fattura-processor/internal/metrics"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/schema"
)

// Phase names the detection step that decided the sub-type
type Phase string

const (
	PhaseSchema   Phase = "schema"
	PhaseVersione Phase = "versione"
)

// probeOrder is fixed. A document valid against both schemas is Semplificata.
var probeOrder = []model.SubType{model.Semplificata, model.Ordinaria}

// Detection describes how a sub-type was determined
type Detection struct {
	SubType  model.SubType `json:"subtype"`
	Phase    Phase         `json:"phase"`
	Schema   string        `json:"schema,omitempty"`
	Versione string        `json:"versione,omitempty"`
	Tried    []string      `json:"tried"`
}

// Detector runs the two-phase classification
type Detector struct {
	validator schema.Validator
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Detector
type Option func(*Detector)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithMetrics records detection outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// New creates a detector probing schemas through v
func New(v schema.Validator, opts ...Option) *Detector {
	d := &Detector{
		validator: v,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the sub-type of raw
func (d *Detector) Detect(ctx context.Context, raw string) (model.SubType, error) {
	det, err := d.DetectDetailed(ctx, raw)
	if err != nil {
		return model.Undetermined, err
	}
	return det.SubType, nil
}

// DetectDetailed returns the sub-type of raw along with the phase that decided it.
//
// Errors: ValidationUnavailableError when the validator fails (Phase 2 is not
// attempted), UnrecognizedFormatError when both phases come up empty.
func (d *Detector) DetectDetailed(ctx context.Context, raw string) (Detection, error) {
	det := Detection{
		SubType: model.Undetermined,
		Tried:   make([]string, 0, len(probeOrder)),
	}

	for _, candidate := range probeOrder {
		name, _ := candidate.SchemaName()
		det.Tried = append(det.Tried, name)

		result, err := d.validator.Validate(ctx, raw, name)
		if err != nil {
			d.metrics.RecordDetectionFailure("validation_unavailable")
			d.logger.Error().Err(err).Str("schema", name).Msg("schema probe failed")
			if errors.Is(err, model.ErrValidationUnavailable) {
				return det, err
			}
			return det, model.NewValidationUnavailableError(name, err)
		}

		d.logger.Debug().
			Str("schema", name).
			Str("verdict", string(result.Verdict)).
			Int("errors", len(result.Errors)).
			Msg("schema probe")

		// Errors from a schema the document does not match carry no signal
		if result.IsValid() {
			det.SubType = candidate
			det.Phase = PhaseSchema
			det.Schema = name
			d.record(det)
			return det, nil
		}
	}

	versione, _ := Versione(raw)
	det.Versione = versione
	subType, ok := ClassifyVersione(versione)
	if !ok {
		d.metrics.RecordDetectionFailure("unrecognized")
		d.logger.Warn().Str("versione", versione).Msg("document not recognized")
		return det, model.NewUnrecognizedFormatError(versione, det.Tried)
	}

	det.SubType = subType
	det.Phase = PhaseVersione
	d.record(det)
	return det, nil
}

func (d *Detector) record(det Detection) {
	d.metrics.RecordDetection(det.SubType.String(), string(det.Phase))
	d.logger.Info().
		Str("subtype", det.SubType.String()).
		Str("phase", string(det.Phase)).
		Str("versione", det.Versione).
		Msg("document classified")
}
