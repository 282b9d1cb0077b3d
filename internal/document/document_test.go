package document_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-processor/internal/detect"
	"github.com/rezonia/fattura-processor/internal/document"
	"github.com/rezonia/fattura-processor/internal/fixtures"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/schema"
	"github.com/rezonia/fattura-processor/internal/structure"
)

type fixedDetector struct {
	subType model.SubType
	err     error
	calls   int
}

func (f *fixedDetector) Detect(ctx context.Context, raw string) (model.SubType, error) {
	f.calls++
	return f.subType, f.err
}

func TestNew(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)

	assert.Equal(t, fixtures.Ordinaria(), doc.Raw())
	assert.Equal(t, model.Undetermined, doc.SubType())
	assert.Equal(t, "p:FatturaElettronica", doc.RootName())

	expected, err := structure.Parse(fixtures.Ordinaria())
	require.NoError(t, err)
	assert.Equal(t, expected, doc.Structure())
}

func TestNew_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"malformed", "<FatturaElettronica><Header></FatturaElettronica>"},
		{"plain text", "fattura"},
		{"second root", "<a/><b/>"},
		{"trailing text", "<a>x</a>junk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := document.New(tt.raw)
			require.ErrorIs(t, err, model.ErrParse)
			assert.Nil(t, doc)
		})
	}
}

func TestNewFromBytesAndReader(t *testing.T) {
	_, err := document.NewFromBytes(nil)
	require.ErrorIs(t, err, model.ErrParse)

	_, err = document.NewFromReader(nil)
	require.ErrorIs(t, err, model.ErrParse)

	doc, err := document.NewFromReader(strings.NewReader(fixtures.Semplificata()))
	require.NoError(t, err)
	assert.Equal(t, "p:FatturaElettronicaSemplificata", doc.RootName())
}

func TestPopulateSubType(t *testing.T) {
	doc, err := document.New(fixtures.Semplificata())
	require.NoError(t, err)

	det := &fixedDetector{subType: model.Semplificata}
	got, err := doc.PopulateSubType(context.Background(), det)
	require.NoError(t, err)
	assert.Equal(t, model.Semplificata, got)
	assert.Equal(t, model.Semplificata, doc.SubType())
}

func TestPopulateSubType_Idempotent(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)
	det := detect.New(schema.Unavailable{})
	ctx := context.Background()

	first, err := doc.PopulateSubType(ctx, det)
	require.NoError(t, err)
	second, err := doc.PopulateSubType(ctx, det)
	require.NoError(t, err)

	assert.Equal(t, model.Ordinaria, first)
	assert.Equal(t, first, second)
	assert.Equal(t, fixtures.Ordinaria(), doc.Raw())
}

func TestPopulateSubType_ErrorKeepsPreviousSubType(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = doc.PopulateSubType(ctx, &fixedDetector{subType: model.Ordinaria})
	require.NoError(t, err)

	failing := &fixedDetector{err: model.NewValidationUnavailableError(model.SchemaSemplificata, errors.New("engine crashed"))}
	_, err = doc.PopulateSubType(ctx, failing)
	require.ErrorIs(t, err, model.ErrValidationUnavailable)
	assert.Equal(t, model.Ordinaria, doc.SubType())
}

func TestPopulateSubType_NoDetector(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)

	_, err = doc.PopulateSubType(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, model.Undetermined, doc.SubType())
}

func TestRequireSubType(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)

	_, err = doc.RequireSubType("render html")
	require.ErrorIs(t, err, model.ErrPrecondition)
	assert.Contains(t, err.Error(), "render html")
	assert.Contains(t, err.Error(), "not yet classified")

	_, err = doc.PopulateSubType(context.Background(), &fixedDetector{subType: model.Ordinaria})
	require.NoError(t, err)
	got, err := doc.RequireSubType("render html")
	require.NoError(t, err)
	assert.Equal(t, model.Ordinaria, got)
}

func TestOpen(t *testing.T) {
	doc, err := document.Open(context.Background(), fixtures.Semplificata(), detect.New(schema.Unavailable{}))
	require.NoError(t, err)
	assert.Equal(t, model.Semplificata, doc.SubType())

	_, err = document.Open(context.Background(), fixtures.WithoutVersione(fixtures.Ordinaria()), detect.New(schema.Unavailable{}))
	require.ErrorIs(t, err, model.ErrUnrecognizedFormat)

	_, err = document.Open(context.Background(), "", detect.New(schema.Unavailable{}))
	require.ErrorIs(t, err, model.ErrParse)
}

func TestConcurrentReaders(t *testing.T) {
	doc, err := document.New(fixtures.Ordinaria())
	require.NoError(t, err)
	det := detect.New(schema.Unavailable{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = doc.PopulateSubType(context.Background(), det)
			_ = doc.SubType()
			_ = doc.Structure().Text("FatturaElettronica", "FatturaElettronicaBody", "DatiGenerali", "DatiGeneraliDocumento", "Numero")
		}()
	}
	wg.Wait()
	assert.Equal(t, model.Ordinaria, doc.SubType())
}
