// Package trust holds the certificate authorities trusted to sign invoices
// and checks signer revocation over OCSP.
package trust

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"
	"time"
)

// TrustStore manages trusted CA certificates and revocation checking.
// FatturaPA signers chain to qualified CAs from the EU trusted lists; the
// store starts empty and is loaded from PEM bundles.
type TrustStore struct {
	mu          sync.RWMutex
	roots       *x509.CertPool
	rootCerts   []*x509.Certificate
	ocspCache   *OCSPCache
	ocspTimeout time.Duration
	softFail    bool
	now         func() time.Time
}

// TrustStoreOption configures a TrustStore
type TrustStoreOption func(*TrustStore) error

// NewTrustStore creates a trust store. Options that load certificates fail
// the constructor when their input is unusable.
func NewTrustStore(opts ...TrustStoreOption) (*TrustStore, error) {
	store := &TrustStore{
		roots:       x509.NewCertPool(),
		rootCerts:   make([]*x509.Certificate, 0),
		ocspCache:   NewOCSPCache(DefaultOCSPCacheTTL),
		ocspTimeout: DefaultOCSPTimeout,
		now:         time.Now,
	}

	for _, opt := range opts {
		if err := opt(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// WithSoftFail enables soft-fail mode for OCSP checks.
// When enabled, an unreachable responder does not fail verification.
func WithSoftFail(enabled bool) TrustStoreOption {
	return func(s *TrustStore) error {
		s.softFail = enabled
		return nil
	}
}

// WithOCSPTimeout sets the timeout for OCSP requests
func WithOCSPTimeout(d time.Duration) TrustStoreOption {
	return func(s *TrustStore) error {
		if d > 0 {
			s.ocspTimeout = d
		}
		return nil
	}
}

// WithPEMFile adds the CA certificates of a PEM bundle
func WithPEMFile(path string) TrustStoreOption {
	return func(s *TrustStore) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read trust bundle: %w", err)
		}
		if err := s.AddCertificatesFromPEM(data); err != nil {
			return fmt.Errorf("trust bundle %s: %w", path, err)
		}
		return nil
	}
}

// WithCertificates trusts the given certificates
func WithCertificates(certs ...*x509.Certificate) TrustStoreOption {
	return func(s *TrustStore) error {
		s.AddCertificates(certs...)
		return nil
	}
}

// WithClock sets the time used for chain validation
func WithClock(now func() time.Time) TrustStoreOption {
	return func(s *TrustStore) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// AddCertificate adds a single certificate to the trust store
func (s *TrustStore) AddCertificate(cert *x509.Certificate) {
	if cert == nil {
		return
	}
	s.mu.Lock()
	s.roots.AddCert(cert)
	s.rootCerts = append(s.rootCerts, cert)
	s.mu.Unlock()
}

// AddCertificates adds multiple certificates to the trust store
func (s *TrustStore) AddCertificates(certs ...*x509.Certificate) {
	for _, cert := range certs {
		s.AddCertificate(cert)
	}
}

// AddCertificatesFromPEM parses and adds every CERTIFICATE block of pemData
func (s *TrustStore) AddCertificatesFromPEM(pemData []byte) error {
	certs := make([]*x509.Certificate, 0)
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			certs = append(certs, cert)
		}
		pemData = rest
	}
	if len(certs) == 0 {
		return fmt.Errorf("no certificates found in PEM data")
	}
	s.AddCertificates(certs...)
	return nil
}

// Len returns the number of trusted certificates
func (s *TrustStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rootCerts)
}

// VerifyChain verifies the certificate chain against trusted roots and
// returns the first valid chain, leaf first
func (s *TrustStore) VerifyChain(cert *x509.Certificate, intermediates []*x509.Certificate) ([]*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var interPool *x509.CertPool
	if len(intermediates) > 0 {
		interPool = x509.NewCertPool()
		for _, inter := range intermediates {
			interPool.AddCert(inter)
		}
	}

	s.mu.RLock()
	opts := x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: interPool,
		CurrentTime:   s.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	chains, err := cert.Verify(opts)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}

	if len(chains) == 0 {
		return nil, fmt.Errorf("no valid certificate chains found")
	}

	return chains[0], nil
}

// CheckRevocation reports whether cert is still good according to its
// issuer's OCSP responder. Certificates without a responder are assumed good.
func (s *TrustStore) CheckRevocation(ctx context.Context, cert *x509.Certificate, issuer *x509.Certificate) (bool, error) {
	if cert == nil || issuer == nil {
		return false, fmt.Errorf("certificate or issuer is nil")
	}

	if notRevoked, found := s.ocspCache.Get(cert); found {
		return notRevoked, nil
	}

	if len(cert.OCSPServer) == 0 {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.ocspTimeout)
	defer cancel()

	revoked, nextUpdate, err := CheckOCSP(ctx, cert, issuer)
	if err != nil {
		if s.softFail {
			return true, fmt.Errorf("OCSP check failed (soft-fail enabled): %w", err)
		}
		return false, fmt.Errorf("OCSP check failed: %w", err)
	}

	s.ocspCache.SetUntil(cert, !revoked, nextUpdate)
	return !revoked, nil
}

// Roots returns the certificate pool
func (s *TrustStore) Roots() *x509.CertPool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roots
}

// IsSoftFail returns whether soft-fail mode is enabled
func (s *TrustStore) IsSoftFail() bool {
	return s.softFail
}

// Now returns the validation time
func (s *TrustStore) Now() time.Time {
	return s.now()
}
