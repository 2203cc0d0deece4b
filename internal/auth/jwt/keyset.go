package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/recipestack/authgate/internal/observability"
)

// JSONWebKeySet represents a published JSON Web Key Set.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// JSONWebKey represents a single published signing key.
type JSONWebKey struct {
	// Key type (e.g., "RSA").
	Kty string `json:"kty"`
	// Key ID.
	Kid string `json:"kid,omitempty"`
	// Algorithm.
	Alg string `json:"alg,omitempty"`
	// Use (e.g., "sig").
	Use string `json:"use,omitempty"`

	// RSA public key components.
	N string `json:"n,omitempty"` // Modulus
	E string `json:"e,omitempty"` // Exponent
}

// SigningKey is a parsed verification key, immutable once built.
type SigningKey struct {
	Kid       string
	Kty       string
	Alg       string
	PublicKey *rsa.PublicKey
}

// KeySet maps key IDs to parsed signing keys.
type KeySet map[string]SigningKey

// KeySetCache fetches and caches the identity provider's signing keys. The
// key set is fetched once per process lifetime; once populated it is never
// refreshed or invalidated, and a key ID absent from the cached set rejects
// the token rather than triggering another fetch.
type KeySetCache struct {
	url        string
	httpClient *http.Client
	logger     observability.Logger
	metrics    *Metrics

	mu   sync.RWMutex
	keys KeySet
}

// KeySetOption is a functional option for the key set cache.
type KeySetOption func(*KeySetCache)

// WithHTTPClient sets a custom HTTP client for the fetch.
func WithHTTPClient(client *http.Client) KeySetOption {
	return func(c *KeySetCache) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithKeySetLogger sets the logger.
func WithKeySetLogger(logger observability.Logger) KeySetOption {
	return func(c *KeySetCache) {
		c.logger = logger
	}
}

// WithKeySetMetrics sets the metrics.
func WithKeySetMetrics(metrics *Metrics) KeySetOption {
	return func(c *KeySetCache) {
		c.metrics = metrics
	}
}

// WithFetchTimeout bounds the key set fetch.
func WithFetchTimeout(timeout time.Duration) KeySetOption {
	return func(c *KeySetCache) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewKeySetCache creates a new key set cache for the given endpoint.
func NewKeySetCache(url string, opts ...KeySetOption) *KeySetCache {
	c := &KeySetCache{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil {
		c.metrics = NewMetrics("authgate")
	}

	return c
}

// EnsureLoaded returns the cached key set, fetching it first if the cache
// is empty. Concurrent cold-start callers may race to fetch; the fetch is
// idempotent and the last write wins.
func (c *KeySetCache) EnsureLoaded(ctx context.Context) (KeySet, error) {
	c.mu.RLock()
	keys := c.keys
	c.mu.RUnlock()

	if keys != nil {
		return keys, nil
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		// The cache stays empty so the next request retries.
		return nil, err
	}

	c.mu.Lock()
	c.keys = keys
	c.mu.Unlock()

	return keys, nil
}

// Key returns the signing key for the given key ID, loading the key set if
// needed. A key ID absent from the loaded set fails with
// ErrUnknownSigningKey.
func (c *KeySetCache) Key(ctx context.Context, kid string) (SigningKey, error) {
	keys, err := c.EnsureLoaded(ctx)
	if err != nil {
		return SigningKey{}, err
	}

	key, ok := keys[kid]
	if !ok {
		return SigningKey{}, NewValidationError(
			fmt.Sprintf("key %q is not in the cached key set", kid),
			ErrUnknownSigningKey,
		)
	}

	return key, nil
}

// Loaded reports whether the key set has been populated.
func (c *KeySetCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys != nil
}

// URL returns the key set endpoint.
func (c *KeySetCache) URL() string {
	return c.url
}

// fetch retrieves and parses the published key set.
func (c *KeySetCache) fetch(ctx context.Context) (KeySet, error) {
	start := time.Now()

	keys, err := c.doFetch(ctx)
	if err != nil {
		c.metrics.RecordKeyFetch("error", time.Since(start))
		c.logger.Error("key set fetch failed",
			observability.String("url", c.url),
			observability.Error(err),
		)
		return nil, NewValidationError("key set fetch failed", fmt.Errorf("%w: %v", ErrKeyFetch, err))
	}

	c.metrics.RecordKeyFetch("success", time.Since(start))
	c.logger.Info("key set loaded",
		observability.String("url", c.url),
		observability.Int("keyCount", len(keys)),
	)

	return keys, nil
}

func (c *KeySetCache) doFetch(ctx context.Context) (KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var jwks JSONWebKeySet
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("failed to parse key set: %w", err)
	}

	keys := make(KeySet, len(jwks.Keys))
	for i := range jwks.Keys {
		entry := &jwks.Keys[i]
		pub, err := entry.ToRSAPublicKey()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", entry.Kid, err)
		}
		keys[entry.Kid] = SigningKey{
			Kid:       entry.Kid,
			Kty:       entry.Kty,
			Alg:       entry.Alg,
			PublicKey: pub,
		}
	}

	return keys, nil
}

// ToRSAPublicKey converts a JSONWebKey to an RSA public key.
func (jwk *JSONWebKey) ToRSAPublicKey() (*rsa.PublicKey, error) {
	if jwk.Kty != "RSA" {
		return nil, fmt.Errorf("key type is not RSA: %s", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	n := new(big.Int).SetBytes(nBytes)

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 + int(b)
	}

	return &rsa.PublicKey{
		N: n,
		E: e,
	}, nil
}
