// Package summary extracts the header facts and totals of a classified invoice.
package summary

import (
	"strings"

	"github.com/shopspring/decimal"

	amount "github.com/rezonia/fattura-processor/internal/decimal"
	"github.com/rezonia/fattura-processor/internal/document"
	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/structure"
)

// TotalSource tells whether the total was declared in the document or computed
type TotalSource string

const (
	TotalDeclared TotalSource = "declared"
	TotalComputed TotalSource = "computed"
)

// Party identifies a seller or buyer
type Party struct {
	Name       string `json:"name"`
	VATID      string `json:"vat_id,omitempty"`
	FiscalCode string `json:"fiscal_code,omitempty"`
}

// Summary holds the facts most callers want without walking the structure
type Summary struct {
	SubType      model.SubType   `json:"subtype"`
	Versione     string          `json:"versione"`
	Transmitter  string          `json:"transmitter"`
	Progressive  string          `json:"progressive"`
	Seller       Party           `json:"seller"`
	Buyer        Party           `json:"buyer"`
	DocumentType string          `json:"document_type"`
	Number       string          `json:"number"`
	Date         string          `json:"date"`
	Currency     string          `json:"currency"`
	Bodies       int             `json:"bodies"`
	Lines        int             `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	TotalSource  TotalSource     `json:"total_source"`
}

// Summarize reads the summary of a classified document. Totals cover the
// first body of a batch.
func Summarize(doc *document.Document) (*Summary, error) {
	subType, err := doc.RequireSubType("summary")
	if err != nil {
		return nil, err
	}

	_, rootValue := doc.Structure().Root()
	root, ok := rootValue.(*structure.Map)
	if !ok {
		return nil, model.NewParseError("root", "document element has no content", nil)
	}

	header, _ := root.Node("FatturaElettronicaHeader")
	if header == nil {
		header = structure.NewMap()
	}
	bodies := root.All("FatturaElettronicaBody")
	body, _ := root.Node("FatturaElettronicaBody")
	if body == nil {
		body = structure.NewMap()
	}

	versione, _ := root.Get(structure.AttrPrefix + "versione")
	s := &Summary{
		SubType:      subType,
		Versione:     structure.TextOf(versione),
		Transmitter:  header.Text("DatiTrasmissione", "IdTrasmittente", "IdPaese") + header.Text("DatiTrasmissione", "IdTrasmittente", "IdCodice"),
		Progressive:  header.Text("DatiTrasmissione", "ProgressivoInvio"),
		DocumentType: body.Text("DatiGenerali", "DatiGeneraliDocumento", "TipoDocumento"),
		Number:       body.Text("DatiGenerali", "DatiGeneraliDocumento", "Numero"),
		Date:         body.Text("DatiGenerali", "DatiGeneraliDocumento", "Data"),
		Currency:     body.Text("DatiGenerali", "DatiGeneraliDocumento", "Divisa"),
		Bodies:       len(bodies),
	}

	switch subType {
	case model.Semplificata:
		err = s.fillSemplificata(header, body)
	default:
		err = s.fillOrdinaria(header, body)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Summary) fillOrdinaria(header, body *structure.Map) error {
	seller, _ := header.Node("CedentePrestatore", "DatiAnagrafici")
	s.Seller = ordinariaParty(seller)
	buyer, _ := header.Node("CessionarioCommittente", "DatiAnagrafici")
	s.Buyer = ordinariaParty(buyer)

	lines := body.All("DatiBeniServizi", "DettaglioLinee")
	s.Lines = len(lines)

	if declared := body.Text("DatiGenerali", "DatiGeneraliDocumento", "ImportoTotaleDocumento"); declared != "" {
		total, err := parseAmount("ImportoTotaleDocumento", declared)
		if err != nil {
			return err
		}
		s.Total = total
		s.TotalSource = TotalDeclared
		return nil
	}

	values := make([]decimal.Decimal, 0, len(lines)+1)
	for _, line := range lines {
		node, ok := line.(*structure.Map)
		if !ok {
			continue
		}
		v, err := parseAmount("PrezzoTotale", node.Text("PrezzoTotale"))
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	for _, tax := range body.All("DatiBeniServizi", "DatiRiepilogo", "Imposta") {
		v, err := parseAmount("Imposta", structure.TextOf(tax))
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	s.Total = amount.RoundEUR(amount.Sum(values))
	s.TotalSource = TotalComputed
	return nil
}

func (s *Summary) fillSemplificata(header, body *structure.Map) error {
	seller, _ := header.Node("CedentePrestatore")
	if seller != nil {
		s.Seller = Party{
			Name:       personName(seller),
			VATID:      seller.Text("IdFiscaleIVA", "IdPaese") + seller.Text("IdFiscaleIVA", "IdCodice"),
			FiscalCode: seller.Text("CodiceFiscale"),
		}
	}

	buyer, _ := header.Node("CessionarioCommittente")
	if buyer != nil {
		s.Buyer = Party{
			VATID:      buyer.Text("IdentificativiFiscali", "IdFiscaleIVA", "IdPaese") + buyer.Text("IdentificativiFiscali", "IdFiscaleIVA", "IdCodice"),
			FiscalCode: buyer.Text("IdentificativiFiscali", "CodiceFiscale"),
		}
		if other, ok := buyer.Node("AltriDatiIdentificativi"); ok {
			s.Buyer.Name = personName(other)
		}
	}

	amounts := body.All("DatiBeniServizi", "Importo")
	s.Lines = len(body.All("DatiBeniServizi"))

	values := make([]decimal.Decimal, 0, len(amounts))
	for _, a := range amounts {
		v, err := parseAmount("Importo", structure.TextOf(a))
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	s.Total = amount.RoundEUR(amount.Sum(values))
	s.TotalSource = TotalComputed
	return nil
}

func ordinariaParty(anagrafici *structure.Map) Party {
	if anagrafici == nil {
		return Party{}
	}
	p := Party{
		VATID:      anagrafici.Text("IdFiscaleIVA", "IdPaese") + anagrafici.Text("IdFiscaleIVA", "IdCodice"),
		FiscalCode: anagrafici.Text("CodiceFiscale"),
	}
	if anagrafica, ok := anagrafici.Node("Anagrafica"); ok {
		p.Name = personName(anagrafica)
	}
	return p
}

// personName returns Denominazione, or Nome and Cognome for individuals
func personName(m *structure.Map) string {
	if name := m.Text("Denominazione"); name != "" {
		return name
	}
	return strings.TrimSpace(m.Text("Nome") + " " + m.Text("Cognome"))
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	v, err := amount.Parse(s)
	if err != nil {
		return decimal.Zero, model.NewParseError(field, "invalid amount", err)
	}
	return v, nil
}
