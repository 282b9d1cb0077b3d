package trust

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"
)

// Default OCSP configuration
const (
	DefaultOCSPTimeout  = 10 * time.Second
	DefaultOCSPCacheTTL = 1 * time.Hour

	maxOCSPResponseSize = 1 << 20
)

// OCSPCache caches revocation answers per certificate
type OCSPCache struct {
	mu      sync.RWMutex
	entries map[string]ocspCacheEntry
	ttl     time.Duration
}

type ocspCacheEntry struct {
	notRevoked bool
	expiresAt  time.Time
}

// NewOCSPCache creates a new OCSP response cache
func NewOCSPCache(ttl time.Duration) *OCSPCache {
	return &OCSPCache{
		entries: make(map[string]ocspCacheEntry),
		ttl:     ttl,
	}
}

// Get retrieves a cached answer
func (c *OCSPCache) Get(cert *x509.Certificate) (notRevoked bool, found bool) {
	if cert == nil {
		return false, false
	}

	key := certCacheKey(cert)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return false, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false
	}

	return entry.notRevoked, true
}

// Set caches an answer for the cache TTL
func (c *OCSPCache) Set(cert *x509.Certificate, notRevoked bool) {
	c.SetUntil(cert, notRevoked, time.Time{})
}

// SetUntil caches an answer until the responder's next update, capped at the
// cache TTL. A zero nextUpdate uses the TTL.
func (c *OCSPCache) SetUntil(cert *x509.Certificate, notRevoked bool, nextUpdate time.Time) {
	if cert == nil {
		return
	}

	expiresAt := time.Now().Add(c.ttl)
	if !nextUpdate.IsZero() && nextUpdate.Before(expiresAt) {
		expiresAt = nextUpdate
	}

	c.mu.Lock()
	c.entries[certCacheKey(cert)] = ocspCacheEntry{
		notRevoked: notRevoked,
		expiresAt:  expiresAt,
	}
	c.mu.Unlock()
}

// Clear removes all cached entries
func (c *OCSPCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]ocspCacheEntry)
	c.mu.Unlock()
}

// Size returns the number of cached entries
func (c *OCSPCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func certCacheKey(cert *x509.Certificate) string {
	return fmt.Sprintf("%s:%s", cert.Issuer.String(), cert.SerialNumber.String())
}

// CheckOCSP asks each responder listed in cert until one answers. It also
// returns the responder's next update time, zero when not given.
func CheckOCSP(ctx context.Context, cert, issuer *x509.Certificate) (revoked bool, nextUpdate time.Time, err error) {
	if len(cert.OCSPServer) == 0 {
		return false, time.Time{}, fmt.Errorf("no OCSP server URL in certificate")
	}

	// SHA-1 CertID is what RFC 5019 responders are required to accept
	request, err := ocsp.CreateRequest(cert, issuer, &ocsp.RequestOptions{Hash: crypto.SHA1})
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to create OCSP request: %w", err)
	}

	var lastErr error
	for _, server := range cert.OCSPServer {
		resp, err := queryOCSPServer(ctx, http.DefaultClient, server, request, cert, issuer)
		if err == nil {
			return resp.Status == ocsp.Revoked, resp.NextUpdate, nil
		}
		lastErr = err
	}

	return false, time.Time{}, fmt.Errorf("all OCSP servers failed: %w", lastErr)
}

func queryOCSPServer(ctx context.Context, client *http.Client, serverURL string, request []byte, cert, issuer *x509.Certificate) (*ocsp.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(request))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ocsp-request")
	req.Header.Set("Accept", "application/ocsp-response")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCSP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OCSP server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOCSPResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read OCSP response: %w", err)
	}

	parsed, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OCSP response: %w", err)
	}

	switch parsed.Status {
	case ocsp.Good, ocsp.Revoked:
		return parsed, nil
	case ocsp.Unknown:
		return nil, fmt.Errorf("OCSP status unknown")
	default:
		return nil, fmt.Errorf("unexpected OCSP status: %d", parsed.Status)
	}
}
