package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// OriginGate creates the origin allow-list middleware.
//
// Behaviour:
//   - Allowed origin: CORS headers are set by go-chi/cors with the origin
//     reflected; OPTIONS requests end here with 204 No Content
//   - Any other origin, or no Origin header: Access-Control-Allow-Origin is
//     "null"; OPTIONS requests get 403 and other requests continue
//
// Non-preflight requests from a disallowed origin are not blocked here; the
// browser refuses the response and non-browser callers still need a valid
// bearer token.
//
// Parameters:
//   - allowedOrigins: exact origins such as "https://app.mkulima.co.ke", or "*"
//
// Example:
//
//	r.Use(middleware.OriginGate(cfg.CORS.AllowedOrigins))
func OriginGate(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	cleaned := make([]string, 0, len(allowedOrigins))
	wildcard := false
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if origin == "*" {
			wildcard = true
		}
		allowed[origin] = true
		cleaned = append(cleaned, origin)
	}

	isAllowed := func(origin string) bool {
		if origin == "" || origin == "null" {
			return false
		}
		return wildcard || allowed[origin]
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:     cleaned,
		AllowedMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:     []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials:   false,
		MaxAge:             600,
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		// go-chi/cors passes OPTIONS through once its headers are set so the
		// status is always 204.
		allowedChain := corsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if isAllowed(origin) {
				allowedChain.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", "null")
			w.Header().Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				log.Warn().
					Str("origin", origin).
					Str("request_id", utils.GetRequestID(r.Context())).
					Msg("Preflight from disallowed origin")
				utils.RespondWithError(w, r, http.StatusForbidden, "Origin not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
