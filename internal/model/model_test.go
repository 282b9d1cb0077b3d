package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-processor/internal/model"
)

func TestSubType_String(t *testing.T) {
	assert.Equal(t, "ordinaria", model.Ordinaria.String())
	assert.Equal(t, "semplificata", model.Semplificata.String())
	assert.Equal(t, "undetermined", model.Undetermined.String())
}

func TestSubType_ZeroValueIsUndetermined(t *testing.T) {
	var s model.SubType
	assert.Equal(t, model.Undetermined, s)
	assert.False(t, s.IsKnown())
}

func TestSubType_SchemaName(t *testing.T) {
	name, err := model.Ordinaria.SchemaName()
	require.NoError(t, err)
	assert.Equal(t, "FatturaOrdinaria", name)

	name, err = model.Semplificata.SchemaName()
	require.NoError(t, err)
	assert.Equal(t, "FatturaSemplificata", name)

	_, err = model.Undetermined.SchemaName()
	require.ErrorIs(t, err, model.ErrPrecondition)
}

func TestSubTypeForSchema(t *testing.T) {
	s, err := model.SubTypeForSchema("FatturaSemplificata")
	require.NoError(t, err)
	assert.Equal(t, model.Semplificata, s)

	_, err = model.SubTypeForSchema("Other")
	require.Error(t, err)
}

func TestSubType_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Type model.SubType `json:"type"`
	}{model.Semplificata})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"semplificata"}`, string(data))

	var out struct {
		Type model.SubType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ORDINARIA"}`), &out))
	assert.Equal(t, model.Ordinaria, out.Type)

	require.Error(t, json.Unmarshal([]byte(`{"type":"fsm"}`), &out))
}

func TestValidationResult_Constructors(t *testing.T) {
	assert.True(t, model.Valid("FatturaOrdinaria").IsValid())

	inv := model.Invalid("FatturaOrdinaria", "e1", "e2")
	assert.False(t, inv.IsValid())
	assert.Equal(t, []string{"e1", "e2"}, inv.Errors)

	unk := model.Unknown("FatturaOrdinaria", "no engine")
	assert.Equal(t, model.VerdictUnknown, unk.Verdict)
	assert.NotEqual(t, model.VerdictInvalid, unk.Verdict)
	assert.False(t, unk.IsValid())
}

func TestErrors_Sentinels(t *testing.T) {
	cause := assert.AnError

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"parse", model.NewParseError("xml", "malformed", cause), model.ErrParse},
		{"unavailable", model.NewValidationUnavailableError("FatturaOrdinaria", cause), model.ErrValidationUnavailable},
		{"unrecognized", model.NewUnrecognizedFormatError("XYZ", []string{"FatturaSemplificata"}), model.ErrUnrecognizedFormat},
		{"precondition", model.NewPreconditionError("validate"), model.ErrPrecondition},
		{"resource", model.NewResourceNotFoundError("schema", "schemas/FatturaOrdinaria.xsd", cause), model.ErrResourceNotFound},
		{"transformation", model.NewTransformationFailedError("xsltproc", "empty output", nil), model.ErrTransformationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.sentinel)
			for _, other := range tests {
				if other.sentinel != tt.sentinel {
					assert.False(t, errors.Is(tt.err, other.sentinel), "%s should not match %v", tt.name, other.sentinel)
				}
			}
		})
	}
}

func TestErrors_Messages(t *testing.T) {
	err := model.NewResourceNotFoundError("stylesheet", "styles/FatturaOrdinaria.xsl", nil)
	assert.Contains(t, err.Error(), "styles/FatturaOrdinaria.xsl")

	perr := model.NewPreconditionError("toHTML")
	assert.Contains(t, perr.Error(), "toHTML")
	assert.Contains(t, perr.Error(), "not yet classified")

	verr := model.NewValidationUnavailableError("FatturaOrdinaria", assert.AnError)
	assert.Contains(t, verr.Error(), "could not be validated")
	require.ErrorIs(t, verr, assert.AnError)

	uerr := model.NewUnrecognizedFormatError("", []string{"FatturaSemplificata", "FatturaOrdinaria"})
	assert.Contains(t, uerr.Error(), "no versione attribute")
}
