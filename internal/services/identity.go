package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/rs/zerolog/log"
)

// PublicKeyProvider resolves a token's key id to an RSA public key.
// Implemented by KeySet; tests substitute a static map.
type PublicKeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// IdentityVerifier validates bearer tokens issued by the third-party
// identity provider. It accepts only RS256 tokens signed by a key from the
// provider's published key set, issued for the configured project and not
// yet expired.
//
// Only the subject identifier is exposed to callers; no other claims leave
// this type.
type IdentityVerifier struct {
	projectID string
	keys      PublicKeyProvider
	now       func() time.Time
}

// NewIdentityVerifier creates a verifier for tokens issued to projectID.
// An empty projectID is allowed at construction and reported as a
// configuration error on first use.
//
// Example:
//
//	verifier := services.NewIdentityVerifier(cfg.Identity.ProjectID, services.NewKeySet(cfg.Identity.JWKSURL, nil))
//	uid, err := verifier.Verify(ctx, r.Header.Get("Authorization"))
func NewIdentityVerifier(projectID string, keys PublicKeyProvider) *IdentityVerifier {
	return &IdentityVerifier{
		projectID: projectID,
		keys:      keys,
		now:       time.Now,
	}
}

// Issuer returns the issuer URL accepted by the verifier.
func (v *IdentityVerifier) Issuer() string {
	return "https://securetoken.google.com/" + v.projectID
}

// VerifyRequest verifies the Authorization header of r.
func (v *IdentityVerifier) VerifyRequest(r *http.Request) (string, error) {
	return v.Verify(r.Context(), r.Header.Get("Authorization"))
}

// Verify checks an Authorization header value ("Bearer <token>") and returns
// the token's subject: the user_id claim, or sub when user_id is absent.
//
// Every verification failure is an Unauthenticated error. A key set that
// cannot be fetched is an Upstream error and a missing project id is a
// Configuration error.
func (v *IdentityVerifier) Verify(ctx context.Context, authorization string) (string, error) {
	if v.projectID == "" {
		return "", apperr.Configuration("identity project id is not configured", nil)
	}

	raw, err := bearerToken(authorization)
	if err != nil {
		return "", err
	}
	if strings.Count(raw, ".") != 2 {
		return "", apperr.Unauthenticated("Invalid token", errors.New("token is not a three-part JWS"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.Issuer()),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)

	claims := jwt.MapClaims{}
	_, err = parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, apperr.Unauthenticated("Invalid token", errors.New("token header has no key id"))
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind != apperr.KindUnauthenticated {
			return "", appErr
		}
		log.Debug().Err(err).Msg("Bearer token rejected")
		return "", apperr.Unauthenticated("Invalid token", err)
	}

	subject := stringClaim(claims, "user_id")
	if subject == "" {
		subject = stringClaim(claims, "sub")
	}
	if subject == "" {
		return "", apperr.Unauthenticated("Invalid token", errors.New("token has no subject"))
	}
	return subject, nil
}

func bearerToken(authorization string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperr.Unauthenticated("Missing bearer token", fmt.Errorf("authorization header is not a bearer credential"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.Unauthenticated("Missing bearer token", nil)
	}
	return token, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}
