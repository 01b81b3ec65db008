package services

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/rs/zerolog/log"
)

// defaultKeySetTTL applies when the key set response has no usable max-age.
const defaultKeySetTTL = 3600 * time.Second

var maxAgePattern = regexp.MustCompile(`(?i)max-age\s*=\s*(\d+)`)

// KeySet is a lazily populated cache of the identity provider's RSA public
// keys, indexed by key id.
//
// The whole key map is replaced on refresh, so readers either see the old
// set or the new one. Two requests that miss at the same moment may both
// fetch; the later write simply wins.
type KeySet struct {
	url        string
	httpClient *http.Client
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// NewKeySet creates a key set cache for the JWKS document at url.
//
// Example:
//
//	keys := services.NewKeySet(cfg.Identity.JWKSURL, nil)
//	verifier := services.NewIdentityVerifier(cfg.Identity.ProjectID, keys)
func NewKeySet(url string, httpClient *http.Client) *KeySet {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{
		url:        url,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Key returns the public key for kid. The key set is fetched when the cache
// is empty or expired; an unknown kid against a fresh cache is reported as
// Unauthenticated without refetching.
func (k *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	keys, err := k.current(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := keys[kid]
	if !ok {
		return nil, apperr.Unauthenticated("Invalid token", fmt.Errorf("unknown key id %q", kid))
	}
	return key, nil
}

func (k *KeySet) current(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	k.mu.RLock()
	keys, expiresAt := k.keys, k.expiresAt
	k.mu.RUnlock()

	if keys != nil && k.now().Before(expiresAt) {
		return keys, nil
	}

	keys, ttl, err := k.fetch(ctx)
	if err != nil {
		return nil, err
	}

	k.mu.Lock()
	k.keys = keys
	k.expiresAt = k.now().Add(ttl)
	k.mu.Unlock()

	log.Debug().Int("keys", len(keys)).Dur("ttl", ttl).Msg("Refreshed identity key set")
	return keys, nil
}

func (k *KeySet) fetch(ctx context.Context) (map[string]*rsa.PublicKey, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, 0, apperr.Configuration("invalid key set URL", err)
	}

	start := time.Now()
	resp, err := k.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("jwks", "fetch", "error", time.Since(start))
		return nil, 0, apperr.Upstream("failed to fetch identity key set: "+err.Error(), 0, "")
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("jwks", "fetch", strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, apperr.Upstream("failed to read identity key set", resp.StatusCode, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, apperr.Upstream(fmt.Sprintf("identity key set request failed (%d)", resp.StatusCode), resp.StatusCode, string(body))
	}

	// Keys are parsed one at a time so a single malformed entry does not
	// take down the whole set.
	var doc struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, 0, apperr.Upstream("identity key set is not valid JSON", resp.StatusCode, string(body))
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, raw := range doc.Keys {
		key, err := jwk.ParseKey(raw)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping malformed key")
			continue
		}
		if key.KeyType() != jwa.RSA || key.KeyID() == "" {
			continue
		}
		pub, err := rsaPublicKey(key)
		if err != nil {
			log.Warn().Err(err).Str("kid", key.KeyID()).Msg("Skipping malformed key")
			continue
		}
		keys[key.KeyID()] = pub
	}

	return keys, parseMaxAge(resp.Header.Get("Cache-Control")), nil
}

// parseMaxAge reads the max-age directive from a Cache-Control header,
// defaulting to one hour.
func parseMaxAge(cacheControl string) time.Duration {
	m := maxAgePattern.FindStringSubmatch(cacheControl)
	if m == nil {
		return defaultKeySetTTL
	}
	seconds, err := strconv.Atoi(m[1])
	if err != nil {
		return defaultKeySetTTL
	}
	return time.Duration(seconds) * time.Second
}

func rsaPublicKey(key jwk.Key) (*rsa.PublicKey, error) {
	var raw any
	if err := key.Raw(&raw); err != nil {
		return nil, err
	}
	pub, ok := raw.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("key %q is %T, not an RSA public key", key.KeyID(), raw)
	}
	return pub, nil
}
