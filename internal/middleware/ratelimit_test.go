package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkulima/asha/internal/testutil"
	"github.com/stretchr/testify/assert"
)

type failingCounter struct{}

func (failingCounter) IncrementRateLimit(context.Context, string, string, time.Duration) (int64, error) {
	return 0, errors.New("redis down")
}

func TestRateLimiter(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(h http.Handler, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/asha/chat", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("blocks after the limit", func(t *testing.T) {
		redisDB, _ := testutil.NewTestRedisDB(t)
		handler := NewRateLimiter(redisDB, 3, time.Minute).Limit("chat")(okHandler)

		for i := 0; i < 3; i++ {
			rec := send(handler, testutil.IPAddresses.Public)
			assert.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
			assert.Equal(t, fmt.Sprint(2-i), rec.Header().Get("X-RateLimit-Remaining"))
		}

		rec := send(handler, testutil.IPAddresses.Public)
		testutil.AssertStatusCode(t, rec, http.StatusTooManyRequests)
		testutil.AssertErrorBody(t, rec, "Too many requests")
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("counts clients separately", func(t *testing.T) {
		redisDB, _ := testutil.NewTestRedisDB(t)
		handler := NewRateLimiter(redisDB, 1, time.Minute).Limit("chat")(okHandler)

		assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Public).Code)
		assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Private).Code)
		assert.Equal(t, http.StatusTooManyRequests, send(handler, testutil.IPAddresses.Public).Code)
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		redisDB, mr := testutil.NewTestRedisDB(t)
		handler := NewRateLimiter(redisDB, 1, time.Minute).Limit("chat")(okHandler)

		assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Public).Code)
		assert.Equal(t, http.StatusTooManyRequests, send(handler, testutil.IPAddresses.Public).Code)

		mr.FastForward(61 * time.Second)
		assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Public).Code)
	})

	t.Run("counter errors let requests through", func(t *testing.T) {
		handler := NewRateLimiter(failingCounter{}, 1, time.Minute).Limit("chat")(okHandler)

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Public).Code)
		}
	})

	t.Run("authenticated callers are keyed by uid", func(t *testing.T) {
		redisDB, mr := testutil.NewTestRedisDB(t)
		handler := NewRateLimiter(redisDB, 1, time.Minute).Limit("chat")(okHandler)

		sendAs := func(uid, forwardedFor string) int {
			req := httptest.NewRequest(http.MethodPost, "/asha/chat", nil)
			req.Header.Set("X-Forwarded-For", forwardedFor)
			req = req.WithContext(WithUserID(req.Context(), uid))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}

		assert.Equal(t, http.StatusOK, sendAs(testutil.TestUID, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, sendAs(testutil.TestUID, "198.51.100.2"))
		assert.Equal(t, http.StatusOK, sendAs("uid-other", "198.51.100.1"))
		assert.True(t, mr.Exists("ratelimit:uid:"+testutil.TestUID+":chat"))
	})

	t.Run("non-positive limit disables limiting", func(t *testing.T) {
		handler := NewRateLimiter(failingCounter{}, 0, time.Minute).Limit("chat")(okHandler)
		assert.Equal(t, http.StatusOK, send(handler, testutil.IPAddresses.Public).Code)

		var nilLimiter *RateLimiter
		assert.Equal(t, http.StatusOK, send(nilLimiter.Limit("chat")(okHandler), testutil.IPAddresses.Public).Code)
	})
}
