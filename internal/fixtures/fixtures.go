// Package fixtures embeds sample FatturaPA documents and minimal schema and
// stylesheet resources shared by the package tests.
package fixtures

import (
	"embed"
	"io/fs"
	"strings"
)

//go:embed testdata
var testdata embed.FS

// Sample file names
const (
	OrdinariaFile    = "invoices/IT01234567890_FPR02.xml"
	SemplificataFile = "invoices/IT01234567890_FSM01.xml"
)

// Resources returns a filesystem laid out as a resource root:
// schemas/*.xsd and styles/*.xsl
func Resources() fs.FS {
	sub, err := fs.Sub(testdata, "testdata")
	if err != nil {
		panic(err)
	}
	return sub
}

// Ordinaria returns a FPR12 invoice that conforms to the FatturaOrdinaria fixture schema
func Ordinaria() string {
	return mustRead(OrdinariaFile)
}

// Semplificata returns a FSM10 invoice that conforms to the FatturaSemplificata fixture schema
func Semplificata() string {
	return mustRead(SemplificataFile)
}

// WithVersione rewrites the root versione attribute of doc
func WithVersione(doc, versione string) string {
	for _, v := range []string{`versione="FPR12"`, `versione="FSM10"`} {
		if strings.Contains(doc, v) {
			return strings.Replace(doc, v, `versione="`+versione+`"`, 1)
		}
	}
	return doc
}

// WithoutVersione removes the root versione attribute of doc
func WithoutVersione(doc string) string {
	doc = strings.Replace(doc, ` versione="FPR12"`, "", 1)
	return strings.Replace(doc, ` versione="FSM10"`, "", 1)
}

func mustRead(name string) string {
	data, err := fs.ReadFile(Resources(), name)
	if err != nil {
		panic(err)
	}
	return string(data)
}
