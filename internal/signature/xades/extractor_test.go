package xades

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	dsig "github.com/russellhaering/goxmldsig"

	"github.com/rezonia/fattura-processor/internal/model"
	"github.com/rezonia/fattura-processor/internal/signature"
)

func testCertBase64(t *testing.T) string {
	t.Helper()
	_, der, err := dsig.RandomKeyStoreForTest().GetKeyPair()
	if err != nil {
		t.Fatalf("key pair: %v", err)
	}
	return base64.StdEncoding.EncodeToString(der)
}

func signedSkeleton(root, keyInfo, object string) []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<p:` + root + ` versione="FPR12" xmlns:p="http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2">
  <FatturaElettronicaHeader/>
  <ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#" Id="Signature1">
    <ds:SignedInfo/>
    <ds:SignatureValue>AAAA</ds:SignatureValue>
    ` + keyInfo + `
    ` + object + `
  </ds:Signature>
</p:` + root + `>`)
}

func TestExtract(t *testing.T) {
	cert := testCertBase64(t)
	// wrapped the way signing tools emit it
	wrapped := cert[:40] + "\n      " + cert[40:]

	keyInfo := `<ds:KeyInfo><ds:X509Data>
      <ds:X509Certificate>` + wrapped + `</ds:X509Certificate>
      <ds:X509Certificate>` + cert + `</ds:X509Certificate>
    </ds:X509Data></ds:KeyInfo>`
	object := `<ds:Object><xades:QualifyingProperties xmlns:xades="http://uri.etsi.org/01903/v1.3.2#" Target="#Signature1">
      <xades:SignedProperties><xades:SignedSignatureProperties>
        <xades:SigningTime>2024-03-01T10:15:30+01:00</xades:SigningTime>
      </xades:SignedSignatureProperties></xades:SignedProperties>
    </xades:QualifyingProperties></ds:Object>`

	ext, err := Extract(signedSkeleton("FatturaElettronica", keyInfo, object))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if ext.SubType != model.Ordinaria {
		t.Errorf("SubType: got %v, want ordinaria", ext.SubType)
	}
	if ext.Signed.Tag != "FatturaElettronica" {
		t.Errorf("Signed: got %s", ext.Signed.FullTag())
	}
	if ext.Signature.SelectAttrValue("Id", "") != "Signature1" {
		t.Error("wrong Signature element")
	}
	if len(ext.Certificates) != 2 {
		t.Fatalf("Certificates: got %d, want 2", len(ext.Certificates))
	}
	want := time.Date(2024, 3, 1, 9, 15, 30, 0, time.UTC)
	if ext.SigningTime == nil || !ext.SigningTime.Equal(want) {
		t.Errorf("SigningTime: got %v, want %v", ext.SigningTime, want)
	}
}

func TestExtract_SubTypeFromRoot(t *testing.T) {
	keyInfo := `<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + testCertBase64(t) + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`

	tests := []struct {
		root string
		want model.SubType
	}{
		{"FatturaElettronica", model.Ordinaria},
		{"FatturaElettronicaSemplificata", model.Semplificata},
		{"Invoice", model.Undetermined},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			ext, err := Extract(signedSkeleton(tt.root, keyInfo, ""))
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if ext.SubType != tt.want {
				t.Errorf("SubType: got %v, want %v", ext.SubType, tt.want)
			}
			if ext.SigningTime != nil {
				t.Error("SigningTime should be nil without XAdES properties")
			}
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code string
	}{
		{
			name: "malformed",
			data: []byte(`<p:FatturaElettronica><unclosed>`),
			code: signature.ErrCodeMalformed,
		},
		{
			name: "unsigned",
			data: []byte(`<FatturaElettronica><FatturaElettronicaHeader/></FatturaElettronica>`),
			code: signature.ErrCodeNoSignature,
		},
		{
			name: "signature outside dsig namespace",
			data: []byte(`<FatturaElettronica><Signature>x</Signature></FatturaElettronica>`),
			code: signature.ErrCodeNoSignature,
		},
		{
			name: "no certificate",
			data: signedSkeleton("FatturaElettronica", "", ""),
			code: signature.ErrCodeNoCertificate,
		},
		{
			name: "certificate not base64",
			data: signedSkeleton("FatturaElettronica", `<ds:KeyInfo><ds:X509Data><ds:X509Certificate>!!!</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`, ""),
			code: signature.ErrCodeNoCertificate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data)
			var sigErr *signature.SignatureError
			if !errors.As(err, &sigErr) {
				t.Fatalf("expected SignatureError, got %v", err)
			}
			if sigErr.Code != tt.code {
				t.Errorf("Code: got %s, want %s", sigErr.Code, tt.code)
			}
		})
	}
}

func TestExtract_NestedSignature(t *testing.T) {
	data := []byte(`<Envelope><Payload><ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#" Id="inner"/></Payload></Envelope>`)

	ext, err := Extract(data)
	if ext == nil {
		t.Fatalf("Extract returned nil: %v", err)
	}
	if ext.Signature.SelectAttrValue("Id", "") != "inner" {
		t.Error("nested signature not found")
	}
	if !errors.Is(err, signature.ErrNoCertificate(nil)) {
		t.Errorf("expected no certificate error, got %v", err)
	}
}
