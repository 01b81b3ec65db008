package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mkulima/asha/pkg/utils"
	"github.com/rs/zerolog/log"
)

// RateCounter increments a per-client, per-endpoint counter that expires
// after window. Implemented by database.RedisDB.
type RateCounter interface {
	IncrementRateLimit(ctx context.Context, client, endpoint string, window time.Duration) (int64, error)
}

// RateLimiter implements fixed-window rate limiting per caller and
// endpoint. Counters live in Redis so every instance shares them.
//
// Callers are keyed by the uid that Authenticate stored in the context.
// Requests without one fall back to the client IP.
//
// On limit exceeded:
//   - Returns 429 Too Many Requests with the standard error body
//   - Sets Retry-After to the window length in seconds
type RateLimiter struct {
	counter        RateCounter
	requestsPerMin int
	window         time.Duration
}

// NewRateLimiter creates a rate limiter allowing requestsPerMin requests per
// window. A non-positive requestsPerMin disables limiting.
//
// Example:
//
//	limiter := middleware.NewRateLimiter(redisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)
//	r.With(limiter.Limit("chat")).Post("/asha/chat", chatHandler.Chat)
func NewRateLimiter(counter RateCounter, requestsPerMin int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		counter:        counter,
		requestsPerMin: requestsPerMin,
		window:         window,
	}
}

// Limit creates middleware that applies the limit to one endpoint name.
// Redis errors let the request through.
func (rl *RateLimiter) Limit(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil || rl.counter == nil || rl.requestsPerMin <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			client := rateLimitClient(r)
			count, err := rl.counter.IncrementRateLimit(r.Context(), client, endpoint, rl.window)
			if err != nil {
				log.Error().Err(err).Str("client", client).Str("endpoint", endpoint).Msg("Failed to check rate limit")
				next.ServeHTTP(w, r)
				return
			}

			limit := strconv.Itoa(rl.requestsPerMin)
			if count > int64(rl.requestsPerMin) {
				log.Warn().
					Str("client", client).
					Str("endpoint", endpoint).
					Int64("count", count).
					Msg("Rate limit exceeded")

				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				utils.RespondWithError(w, r, http.StatusTooManyRequests, "Too many requests")
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(rl.requestsPerMin)-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitClient(r *http.Request) string {
	if uid, ok := GetUserID(r.Context()); ok {
		return "uid:" + uid
	}
	return "ip:" + utils.ExtractClientIP(r)
}
