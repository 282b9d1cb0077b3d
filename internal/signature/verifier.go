package signature

import (
	"bytes"
	"context"
)

// Envelope formats
const (
	// FormatXAdES is an enveloped XMLDSig/XAdES signature inside the XML (.xml)
	FormatXAdES = "xades"
	// FormatCAdES is a PKCS#7 envelope around the XML (.xml.p7m)
	FormatCAdES = "cades"
)

// Verifier defines the interface for signature verification
type Verifier interface {
	// Verify verifies the digital signature on the given data
	Verify(ctx context.Context, data []byte) (*VerificationResult, error)

	// CanVerify returns true if this verifier can handle the given data
	CanVerify(data []byte) bool

	// Format returns the envelope format this verifier handles
	Format() string
}

// VerifierRegistry holds registered verifiers for different formats
type VerifierRegistry struct {
	verifiers []Verifier
}

// NewVerifierRegistry creates a new empty registry
func NewVerifierRegistry() *VerifierRegistry {
	return &VerifierRegistry{
		verifiers: make([]Verifier, 0),
	}
}

// Register adds a verifier to the registry
func (r *VerifierRegistry) Register(v Verifier) {
	r.verifiers = append(r.verifiers, v)
}

// Detect finds a verifier that can handle the given data
func (r *VerifierRegistry) Detect(data []byte) (Verifier, error) {
	for _, v := range r.verifiers {
		if v.CanVerify(data) {
			return v, nil
		}
	}
	if IsCAdES(data) {
		return nil, ErrUnsupportedFormat(FormatCAdES)
	}
	return nil, ErrUnsupportedFormat("unknown")
}

// Verify verifies signature using the appropriate verifier
func (r *VerifierRegistry) Verify(ctx context.Context, data []byte) (*VerificationResult, error) {
	verifier, err := r.Detect(data)
	if err != nil {
		return nil, err
	}
	return verifier.Verify(ctx, data)
}

// AvailableFormats returns list of formats that can be verified
func (r *VerifierRegistry) AvailableFormats() []string {
	formats := make([]string, 0, len(r.verifiers))
	for _, v := range r.verifiers {
		formats = append(formats, v.Format())
	}
	return formats
}

// IsCAdES reports whether data looks like a DER or base64 PKCS#7 envelope
func IsCAdES(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 {
		return false
	}
	// DER SEQUENCE, or "MI" which is its base64 encoding
	return trimmed[0] == 0x30 || bytes.HasPrefix(trimmed, []byte("MI"))
}
