package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/fattura-processor/internal/detect"
	"github.com/rezonia/fattura-processor/internal/model"
)

func TestVersione(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"double quotes", `<?xml version="1.0"?><p:FatturaElettronica versione="FPR12">`, "FPR12", true},
		{"single quotes", `<F versione='FSM10'/>`, "FSM10", true},
		{"spaces around equals", `<F versione = "FPA12" >`, "FPA12", true},
		{"missing", `<F><Body versione="FSM10"/></F>`, "", false},
		{"truncated document", `<p:FatturaElettronica versione="FPR12"`, "FPR12", true},
		{"empty", ``, "", false},
		{"markup in comment", `<!-- <Note versione="FPR12"> --><F versione="FSM10"/>`, "FSM10", true},
		{"multi-line comment", "<?xml version=\"1.0\"?>\n<!--\n<X versione=\"FPA12\">\n-->\n<F versione=\"FSM10\">", "FSM10", true},
		{"doctype subset", `<!DOCTYPE F [<!ELEMENT F ANY>]><F versione="FPR12"/>`, "FPR12", true},
		{"only commented versione", `<!-- versione="FPR12" --><F/>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detect.Versione(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyVersione(t *testing.T) {
	tests := []struct {
		in     string
		want   model.SubType
		wantOK bool
	}{
		{"FSM10", model.Semplificata, true},
		{"fsm10", model.Semplificata, true},
		{"FPR12", model.Ordinaria, true},
		{"FPA12", model.Ordinaria, true},
		{"fpa12", model.Ordinaria, true},
		{"FX12", model.Undetermined, false},
		{"", model.Undetermined, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := detect.ClassifyVersione(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
