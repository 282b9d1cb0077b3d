// Package xades verifies the enveloped XAdES-BES signature of a signed
// FatturaPA document (.xml, as opposed to the CAdES .xml.p7m envelope).
package xades

import (
	"bytes"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/signature"
	"github.com/rezonia/fattura-processor/internal/structure"
)

// XMLDSigNamespace is the ds: namespace
const XMLDSigNamespace = "http://www.w3.org/2000/09/xmldsig#"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extraction holds the signature of a FatturaPA document and what it covers
type Extraction struct {
	Document *etree.Document

	// Signed is the FatturaPA root; the signature is enveloped in it
	Signed    *etree.Element
	Signature *etree.Element

	// SubType is derived from the root element name
	SubType model.SubType

	// Certificates from KeyInfo/X509Data, signer first
	Certificates []*x509.Certificate

	// SigningTime from the XAdES SignedSignatureProperties, nil if absent
	SigningTime *time.Time
}

// Extract parses data and locates its ds:Signature
func Extract(data []byte) (*Extraction, error) {
	doc, err := structure.ReadDocument(bytes.TrimPrefix(data, utf8BOM))
	if err != nil {
		return nil, signature.ErrMalformed(err)
	}

	root := doc.Root()
	sig := findSignature(root)
	if sig == nil {
		return nil, signature.ErrNoSignature()
	}

	ext := &Extraction{
		Document:    doc,
		Signed:      root,
		Signature:   sig,
		SubType:     subTypeForRoot(root.Tag),
		SigningTime: signingTime(sig),
	}

	certs, err := certificates(sig)
	if err != nil {
		return ext, err
	}
	ext.Certificates = certs
	return ext, nil
}

// findSignature prefers the ds:Signature child of the root, where FatturaPA
// places it, and falls back to a depth-first search
func findSignature(root *etree.Element) *etree.Element {
	if sig := child(root, "Signature"); sig != nil && sig.NamespaceURI() == XMLDSigNamespace {
		return sig
	}
	for _, c := range root.ChildElements() {
		if sig := findSignature(c); sig != nil {
			return sig
		}
	}
	return nil
}

func subTypeForRoot(local string) model.SubType {
	switch local {
	case "FatturaElettronica":
		return model.Ordinaria
	case "FatturaElettronicaSemplificata":
		return model.Semplificata
	default:
		return model.Undetermined
	}
}

func certificates(sig *etree.Element) ([]*x509.Certificate, error) {
	x509Data := child(child(sig, "KeyInfo"), "X509Data")
	nodes := children(x509Data, "X509Certificate")
	if len(nodes) == 0 {
		return nil, signature.ErrNoCertificate(nil)
	}

	certs := make([]*x509.Certificate, 0, len(nodes))
	for i, n := range nodes {
		// certificates are usually wrapped at 76 columns
		der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Text()), ""))
		if err != nil {
			return nil, signature.ErrNoCertificate(fmt.Errorf("certificate %d: %w", i, err))
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, signature.ErrNoCertificate(fmt.Errorf("certificate %d: %w", i, err))
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

var signingTimeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05"}

func signingTime(sig *etree.Element) *time.Time {
	el := child(child(child(child(child(sig,
		"Object"),
		"QualifyingProperties"),
		"SignedProperties"),
		"SignedSignatureProperties"),
		"SigningTime")
	if el == nil {
		return nil
	}
	text := strings.TrimSpace(el.Text())
	for _, layout := range signingTimeLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}

// child returns the first child element with the given local name, whatever
// its prefix
func child(el *etree.Element, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

func children(el *etree.Element, local string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == local {
			out = append(out, c)
		}
	}
	return out
}
