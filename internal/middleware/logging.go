package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Logger creates structured logging middleware with request ID correlation.
//
// Request ID flow:
//  1. Use the incoming X-Request-ID header (set by the hosting proxy) if present
//  2. Otherwise generate a UUID
//  3. Store it in the request context and echo it in the response headers
//
// Example logs:
//
//	{"level":"info","request_id":"abc-123","method":"POST","path":"/asha/chat","device":"Chrome 126 Android 14 Mobile","msg":"Request started"}
//	{"level":"info","request_id":"abc-123","status":200,"bytes":412,"duration_ms":45,"msg":"Request completed"}
//
// Usage:
//
//	r.Use(middleware.Logger())
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			r = r.WithContext(utils.WithRequestID(r.Context(), requestID))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Header().Set("X-Request-ID", requestID)

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("client_ip", utils.ExtractClientIP(r)).
				Str("origin", r.Header.Get("Origin")).
				Str("device", DeviceInfo(r.UserAgent())).
				Msg("Request started")

			next.ServeHTTP(ww, r)

			log.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration_ms", time.Since(start)).
				Msg("Request completed")
		})
	}
}

// maxDeviceInfo caps the logged device string.
const maxDeviceInfo = 100

// DeviceInfo summarises a User-Agent header as "<browser> <os> <form factor>",
// for example "Chrome 126.0.0.0 Android 14 Mobile". Unparseable agents are
// returned as-is. The result is truncated to 100 bytes.
func DeviceInfo(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.Parse(userAgent)

	var parts []string
	if ua.Name != "" {
		parts = append(parts, strings.TrimSpace(ua.Name+" "+ua.Version))
	}
	if ua.OS != "" {
		parts = append(parts, strings.TrimSpace(ua.OS+" "+ua.OSVersion))
	}
	switch {
	case ua.Bot:
		parts = append(parts, "Bot")
	case ua.Mobile:
		parts = append(parts, "Mobile")
	case ua.Tablet:
		parts = append(parts, "Tablet")
	case ua.Desktop:
		parts = append(parts, "Desktop")
	}

	info := userAgent
	if len(parts) > 0 {
		info = strings.Join(parts, " ")
	}
	if len(info) > maxDeviceInfo {
		return info[:maxDeviceInfo] + "..."
	}
	return info
}

// Recoverer recovers from panics in downstream handlers, logs them and
// answers 500 with the standard error body. Register it before Logger so
// panics inside logging are caught too.
//
// The panic value is logged but never sent to the client.
//
// Usage:
//
//	r.Use(middleware.Recoverer())
//	r.Use(middleware.Logger())
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error().
						Interface("panic", rec).
						Str("request_id", utils.GetRequestID(r.Context())).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					utils.RespondWithError(w, r, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds response headers suitable for a JSON-only API.
//
// Headers added:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Strict-Transport-Security: max-age=31536000; includeSubDomains
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Referrer-Policy: no-referrer
//   - Cache-Control: no-store
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}

// DocsPolicy relaxes the Content-Security-Policy set by SecurityHeaders so
// the Swagger UI can load its own scripts, styles and images.
func DocsPolicy() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'")
			next.ServeHTTP(w, r)
		})
	}
}
