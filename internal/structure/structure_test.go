package structure_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/fattura-processor/internal/fixtures"
	"github.com/rezonia/fattura-processor/internal/structure"
)

func TestParse_Ordinaria(t *testing.T) {
	m, err := structure.Parse(fixtures.Ordinaria())
	require.NoError(t, err)

	assert.Equal(t, []string{"?xml", "p:FatturaElettronica"}, m.Keys())

	decl, ok := m.Get("?xml")
	require.True(t, ok)
	version, _ := decl.(*structure.Map).Get("@_version")
	assert.Equal(t, "1.0", version)

	name, root := m.Root()
	assert.Equal(t, "p:FatturaElettronica", name)
	rootMap, ok := root.(*structure.Map)
	require.True(t, ok)

	keys := rootMap.Keys()
	require.GreaterOrEqual(t, len(keys), 6)
	assert.Equal(t, "@_versione", keys[0])
	assert.Contains(t, keys, "@_xmlns:p")
	assert.Contains(t, keys, "@_xsi:schemaLocation")
	assert.Equal(t, "FatturaElettronicaBody", keys[len(keys)-1])

	versione, _ := rootMap.Get("@_versione")
	assert.Equal(t, "FPR12", versione)
}

func TestParse_RepeatedElementsBecomeSequences(t *testing.T) {
	m, err := structure.Parse(fixtures.Ordinaria())
	require.NoError(t, err)

	lines, ok := m.Lookup("FatturaElettronica", "FatturaElettronicaBody", "DatiBeniServizi", "DettaglioLinee")
	require.True(t, ok)
	seq, ok := lines.([]any)
	require.True(t, ok)
	require.Len(t, seq, 2)

	second := seq[1].(*structure.Map)
	assert.Equal(t, []string{"NumeroLinea", "Descrizione", "Quantita", "PrezzoUnitario", "PrezzoTotale", "AliquotaIVA"}, second.Keys())
	assert.Equal(t, "20.00", second.Text("PrezzoTotale"))
}

func TestParse_TextValuesKeepLeadingZeros(t *testing.T) {
	m, err := structure.Parse(fixtures.Ordinaria())
	require.NoError(t, err)

	assert.Equal(t, "00001", m.Text("FatturaElettronica", "FatturaElettronicaHeader", "DatiTrasmissione", "ProgressivoInvio"))
	assert.Equal(t, "07100", m.Text("FatturaElettronica", "FatturaElettronicaHeader", "CedentePrestatore", "Sede", "CAP"))
}

func TestParse_TextWithAttributes(t *testing.T) {
	m, err := structure.Parse(`<Root><Amount currency="EUR">12.50</Amount></Root>`)
	require.NoError(t, err)

	amount, ok := m.Lookup("Root", "Amount")
	require.True(t, ok)
	am := amount.(*structure.Map)
	assert.Equal(t, []string{"@_currency", "#text"}, am.Keys())
	assert.Equal(t, "12.50", structure.TextOf(amount))
}

func TestParse_EmptyElement(t *testing.T) {
	m, err := structure.Parse(`<Root><Empty/></Root>`)
	require.NoError(t, err)
	v, ok := m.Lookup("Root", "Empty")
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParse_Latin1(t *testing.T) {
	data := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><Root><Citta>`), 0x46, 0x6f, 0x72, 0x6c, 0xec, 0x3c)
	data = append(data, []byte(`/Citta></Root>`)...)

	m, err := structure.ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "Forlì", m.Text("Root", "Citta"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   \n\t"},
		{"not xml", "not xml"},
		{"unclosed", "<Root><Child></Root>"},
		{"only declaration", `<?xml version="1.0"?>`},
		{"two roots", "<a/><b/>"},
		{"trailing text", "<a>x</a>junk"},
		{"leading text", "junk<a>x</a>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := structure.Parse(tt.input)
			require.Error(t, err)
		})
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	for _, doc := range []string{fixtures.Ordinaria(), fixtures.Semplificata()} {
		original, err := structure.Parse(doc)
		require.NoError(t, err)

		data, err := json.MarshalIndent(original, "", "  ")
		require.NoError(t, err)

		decoded := structure.NewMap()
		require.NoError(t, json.Unmarshal(data, decoded))

		assert.Equal(t, original, decoded)
		assert.Equal(t, original.Keys(), decoded.Keys())
	}
}

func TestJSON_PreservesKeyOrder(t *testing.T) {
	m, err := structure.Parse(`<R><Z>1</Z><A>2</A><M>3</M></R>`)
	require.NoError(t, err)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"R":{"Z":"1","A":"2","M":"3"}}`, string(data))
}

func TestJSON_UnmarshalRejectsNonObject(t *testing.T) {
	m := structure.NewMap()
	require.Error(t, json.Unmarshal([]byte(`[1,2]`), m))
}

func TestAll_FansOutAcrossSequences(t *testing.T) {
	m, err := structure.Parse(fixtures.Semplificata())
	require.NoError(t, err)

	amounts := m.All("FatturaElettronicaSemplificata", "FatturaElettronicaBody", "DatiBeniServizi", "Importo")
	require.Len(t, amounts, 2)
	assert.Equal(t, "12.20", structure.TextOf(amounts[0]))
	assert.Equal(t, "3.30", structure.TextOf(amounts[1]))
}

func TestLookup_Missing(t *testing.T) {
	m, err := structure.Parse(`<R><A>1</A></R>`)
	require.NoError(t, err)

	_, ok := m.Lookup("R", "B")
	assert.False(t, ok)
	_, ok = m.Lookup("R", "A", "deeper")
	assert.False(t, ok)
	assert.Equal(t, "", m.Text("X"))
}

func TestNode(t *testing.T) {
	m, err := structure.Parse(fixtures.Ordinaria())
	require.NoError(t, err)

	body, ok := m.Node("FatturaElettronica", "FatturaElettronicaBody")
	require.True(t, ok)
	assert.Equal(t, "123", body.Text("DatiGenerali", "DatiGeneraliDocumento", "Numero"))

	line, ok := body.Node("DatiBeniServizi", "DettaglioLinee")
	require.True(t, ok)
	assert.Equal(t, "1", line.Text("NumeroLinea"))

	_, ok = body.Node("DatiGenerali", "DatiGeneraliDocumento", "Numero")
	assert.False(t, ok)
}

func TestParse_AllowsMiscAroundRoot(t *testing.T) {
	m, err := structure.Parse("<?xml version=\"1.0\"?>\n<!-- header -->\n<R>1</R>\n<!-- trailer -->\n")
	require.NoError(t, err)
	assert.Equal(t, "1", m.Text("R"))
}
