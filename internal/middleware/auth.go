// Package middleware provides the HTTP middleware chain in front of the
// chat and logistics handlers.
//
// Middleware in this package:
//   - Bearer identity-token authentication
//   - Origin allow-list gate with CORS headers
//   - Structured request logging with correlation IDs and device info
//   - Prometheus metrics and OpenTelemetry server spans
//   - Per-client rate limiting backed by Redis
//
// All middleware is designed to be composable with Chi router.
package middleware

import (
	"context"
	"net/http"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// UserIDKey is the context key for the authenticated caller's uid.
// Set by Authenticate after successful token verification.
const UserIDKey contextKey = "uid"

// TokenVerifier checks an Authorization header value and returns the
// caller's uid. Implemented by services.IdentityVerifier.
type TokenVerifier interface {
	Verify(ctx context.Context, authorization string) (string, error)
}

// Authenticate creates middleware that requires a valid identity token in
// the Authorization header ("Bearer <token>").
//
// On success the caller's uid is stored in the request context. On failure
// the request is rejected with the error's status (401 for token problems,
// 500 when the key set cannot be fetched or the project id is missing) and
// a {"ok": false, "error": ...} body.
//
// Usage:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(middleware.Authenticate(verifier))
//	    r.Post("/asha/chat", chatHandler.Chat)
//	    r.Get("/logistics", logisticsHandler.Route)
//	})
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, err := verifier.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				kind := apperr.KindOf(err)
				metrics.IncrementAuthAttempts(kind.String())

				event := log.Warn()
				if kind != apperr.KindUnauthenticated {
					event = log.Error()
				}
				event.Err(err).
					Str("request_id", utils.GetRequestID(r.Context())).
					Str("path", r.URL.Path).
					Msg("Request authentication failed")

				utils.RespondWithError(w, r, apperr.HTTPStatus(err), apperr.PublicMessage(err))
				return
			}

			metrics.IncrementAuthAttempts("success")
			log.Debug().Str("uid", uid).Msg("Caller authenticated")

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// WithUserID returns a copy of ctx carrying uid.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, UserIDKey, uid)
}

// GetUserID extracts the authenticated caller's uid from the request context.
//
// Example:
//
//	uid, ok := middleware.GetUserID(r.Context())
//	if !ok {
//	    utils.RespondWithError(w, r, http.StatusUnauthorized, "Missing bearer token")
//	    return
//	}
func GetUserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserIDKey).(string)
	return uid, ok && uid != ""
}
