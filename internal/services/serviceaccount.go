package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/pkg/config"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauthjwt "golang.org/x/oauth2/jwt"
)

const (
	// assertionLifetime is the exp-iat span of the signed assertion.
	assertionLifetime = time.Hour

	// accessTokenSafetyMargin is subtracted from the provider's expires_in.
	accessTokenSafetyMargin = 600 * time.Second

	// accessTokenMaxCache caps how long a minted token is reused.
	accessTokenMaxCache = 3000 * time.Second

	defaultExpiresIn = 3600 * time.Second
)

// DatastoreScope is the OAuth2 scope for document store access.
const DatastoreScope = "https://www.googleapis.com/auth/datastore"

// serviceAccountCredential is the subset of a service-account key file
// the minter needs.
type serviceAccountCredential struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// ServiceAccountMinter exchanges a self-signed service-account assertion
// for an OAuth2 access token (JWT-bearer grant) and caches the result.
//
// Cache policy: a token minted at t with lifetime expires_in is reused
// until t + clamp(expires_in - 600s, 0, 3000s). It is never served once
// that instant is reached.
//
// The credential is parsed once, on first use, and kept for the lifetime
// of the minter. Concurrent misses may mint twice; the last one wins.
type ServiceAccountMinter struct {
	credentialJSON string
	tokenURL       string
	scopes         []string
	httpClient     *http.Client
	now            func() time.Time

	credOnce sync.Once
	cred     *serviceAccountCredential
	credErr  error

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewServiceAccountMinter creates a minter from configuration. A missing or
// malformed credential is not an error here; it is reported as a
// ConfigurationError by AccessToken.
//
// Example:
//
//	minter := services.NewServiceAccountMinter(cfg.ServiceAccount, nil)
//	token, err := minter.AccessToken(ctx)
//	if err != nil {
//	    return err // ConfigurationError or UpstreamError
//	}
//	req.Header.Set("Authorization", "Bearer "+token)
func NewServiceAccountMinter(cfg config.ServiceAccountConfig, httpClient *http.Client) *ServiceAccountMinter {
	scope := cfg.Scope
	if scope == "" {
		scope = DatastoreScope
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &ServiceAccountMinter{
		credentialJSON: cfg.CredentialJSON,
		tokenURL:       cfg.TokenURL,
		scopes:         []string{scope},
		httpClient:     httpClient,
		now:            time.Now,
	}
}

// AccessToken returns a cached access token, minting a new one when the
// cached token has reached its computed expiry.
func (m *ServiceAccountMinter) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && m.now().Before(m.expiresAt) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.mu.Unlock()

	cred, err := m.credential()
	if err != nil {
		return "", err
	}

	issuedAt := m.now()
	token, expiresIn, err := m.mint(ctx, cred)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.token = token
	m.expiresAt = issuedAt.Add(cacheLifetime(expiresIn))
	expiresAt := m.expiresAt
	m.mu.Unlock()

	log.Debug().
		Str("client_email", cred.ClientEmail).
		Time("cached_until", expiresAt).
		Msg("Minted service account access token")

	return token, nil
}

// cacheLifetime applies the safety margin and the cap to the provider's
// token lifetime.
func cacheLifetime(expiresIn time.Duration) time.Duration {
	lifetime := expiresIn - accessTokenSafetyMargin
	if lifetime < 0 {
		return 0
	}
	if lifetime > accessTokenMaxCache {
		return accessTokenMaxCache
	}
	return lifetime
}

func (m *ServiceAccountMinter) credential() (*serviceAccountCredential, error) {
	m.credOnce.Do(func() {
		m.cred, m.credErr = parseServiceAccount(m.credentialJSON)
	})
	return m.cred, m.credErr
}

func parseServiceAccount(raw string) (*serviceAccountCredential, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Configuration("service account credential is not configured", nil)
	}

	var cred serviceAccountCredential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, apperr.Configuration("service account credential is not valid JSON", err)
	}
	if cred.ClientEmail == "" || cred.PrivateKey == "" {
		return nil, apperr.Configuration("service account credential must include client_email and private_key", nil)
	}

	// Keys pasted into env vars often carry literal "\n" sequences.
	cred.PrivateKey = strings.ReplaceAll(cred.PrivateKey, `\n`, "\n")
	if _, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cred.PrivateKey)); err != nil {
		return nil, apperr.Configuration("service account private key is not a valid RSA PEM key", err)
	}
	return &cred, nil
}

// mint performs the JWT-bearer exchange and returns the token and its
// lifetime as reported by the provider.
func (m *ServiceAccountMinter) mint(ctx context.Context, cred *serviceAccountCredential) (string, time.Duration, error) {
	tokenURL := m.tokenURL
	if tokenURL == "" {
		tokenURL = cred.TokenURI
	}
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}

	conf := &oauthjwt.Config{
		Email:        cred.ClientEmail,
		PrivateKey:   []byte(cred.PrivateKey),
		PrivateKeyID: cred.PrivateKeyID,
		Scopes:       m.scopes,
		TokenURL:     tokenURL,
		Expires:      assertionLifetime,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	start := time.Now()
	tok, err := conf.TokenSource(ctx).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			metrics.RecordUpstream("oauth", "token", strconv.Itoa(status), time.Since(start))
			body := string(retrieveErr.Body)
			return "", 0, apperr.Upstream(fmt.Sprintf("token exchange failed (%d): %s", status, strings.TrimSpace(body)), status, body)
		}
		metrics.RecordUpstream("oauth", "token", "error", time.Since(start))
		return "", 0, apperr.Upstream("token exchange failed: "+err.Error(), 0, "")
	}
	metrics.RecordUpstream("oauth", "token", "200", time.Since(start))

	if tok.AccessToken == "" {
		return "", 0, apperr.Upstream("token exchange response has no access_token", http.StatusOK, "")
	}

	return tok.AccessToken, expiresIn(tok), nil
}

// expiresIn prefers the raw expires_in field and falls back to the parsed
// expiry, then to one hour.
func expiresIn(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case string:
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		return time.Duration(math.Round(time.Until(tok.Expiry).Seconds())) * time.Second
	}
	return defaultExpiresIn
}
