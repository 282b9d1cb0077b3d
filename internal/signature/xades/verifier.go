package xades

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/rezonia/fattura-processor/internal/signature"
	"github.com/rezonia/fattura-processor/internal/signature/trust"
)

// Verifier checks the enveloped signature, the signer's chain against the
// trust store and the signer's OCSP status
type Verifier struct {
	trustStore *trust.TrustStore
	logger     zerolog.Logger
}

// Option configures a Verifier
type Option func(*Verifier)

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// NewVerifier creates a XAdES verifier
func NewVerifier(ts *trust.TrustStore, opts ...Option) *Verifier {
	v := &Verifier{
		trustStore: ts,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify verifies the signature of a signed FatturaPA document. A document
// that is readable but fails a check yields an invalid result and a nil
// error; the error is reserved for documents with nothing to verify.
func (v *Verifier) Verify(ctx context.Context, data []byte) (*signature.VerificationResult, error) {
	result := signature.NewVerificationResult()
	result.Format = signature.FormatXAdES

	ext, err := Extract(data)
	if ext == nil {
		result.AddError(err.Error())
		return result, err
	}

	result.SignatureFound = true
	if name, nameErr := ext.SubType.SchemaName(); nameErr == nil {
		result.SubType = name
	} else {
		result.AddWarning(fmt.Sprintf("signed root %q is not a FatturaPA document", ext.Signed.FullTag()))
	}
	result.SignedAt = ext.SigningTime

	if err != nil {
		result.AddError(err.Error())
		return result, err
	}

	signer := ext.Certificates[0]
	result.SetSigner(signer)

	// goxmldsig only accepts the KeyInfo certificate if it is one of its
	// roots; the real chain is checked against the trust store below
	validation := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{signer},
	})
	if _, err := validation.Validate(ext.Signed); err != nil {
		result.AddError(signature.ErrInvalidSignature(err).Error())
	} else {
		result.SignatureValid = true
	}

	chain, err := v.trustStore.VerifyChain(signer, ext.Certificates[1:])
	if err != nil {
		result.AddError(signature.ErrChainInvalid(err).Error())
	} else {
		result.CertChain = chain
		result.CertChainValid = true
		v.checkRevocation(ctx, result, signer, chain)
	}

	result.ComputeValidity()

	v.logger.Debug().
		Bool("valid", result.Valid).
		Str("subtype", result.SubType).
		Int("chain", len(result.CertChain)).
		Int("errors", len(result.Errors)).
		Msg("signature verified")

	return result, nil
}

func (v *Verifier) checkRevocation(ctx context.Context, result *signature.VerificationResult, signer *x509.Certificate, chain []*x509.Certificate) {
	if len(chain) < 2 {
		result.NotRevoked = true
		result.AddWarning("revocation check skipped: no issuer certificate in chain")
		return
	}

	notRevoked, err := v.trustStore.CheckRevocation(ctx, signer, chain[1])
	switch {
	case err != nil && v.trustStore.IsSoftFail():
		result.AddWarning(signature.ErrOCSPUnavailable(err).Error())
		result.NotRevoked = true
	case err != nil:
		result.AddError(signature.ErrOCSPUnavailable(err).Error())
	case !notRevoked:
		result.AddError(signature.ErrCertRevoked(signer.Subject.CommonName).Error())
	default:
		result.NotRevoked = true
	}
}

// CanVerify returns true for anything that looks like XML
func (v *Verifier) CanVerify(data []byte) bool {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	return len(trimmed) >= 5 && trimmed[0] == '<'
}

// Format returns the envelope format this verifier handles
func (v *Verifier) Format() string {
	return signature.FormatXAdES
}

// IsNoSignature reports whether err means the document is not signed
func IsNoSignature(err error) bool {
	return errors.Is(err, signature.ErrNoSignature())
}
