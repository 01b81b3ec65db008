package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkulima/asha/internal/testutil"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	t.Run("returns 200 OK without checking dependencies", func(t *testing.T) {
		called := false
		handler := NewHealthHandler(map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { called = true; return nil }),
		})

		rec := httptest.NewRecorder()
		handler.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		var response HealthResponse
		testutil.ParseJSONResponse(t, rec, &response)
		assert.Equal(t, "ok", response.Status)
		assert.False(t, response.Timestamp.IsZero())
		assert.Nil(t, response.Services)
		assert.False(t, called)
	})

	t.Run("includes correct content-type header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	})
}

func TestReady(t *testing.T) {
	t.Run("all services healthy returns 200 OK", func(t *testing.T) {
		redisDB, _ := testutil.NewTestRedisDB(t)
		handler := NewHealthHandler(map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return nil }),
			"redis":    redisDB,
		})

		rec := httptest.NewRecorder()
		handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		testutil.AssertStatusCode(t, rec, http.StatusOK)
		var response HealthResponse
		testutil.ParseJSONResponse(t, rec, &response)
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, map[string]string{"postgres": "healthy", "redis": "healthy"}, response.Services)
	})

	t.Run("one unhealthy service returns 503 degraded", func(t *testing.T) {
		redisDB, mr := testutil.NewTestRedisDB(t)
		mr.Close()
		handler := NewHealthHandler(map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return nil }),
			"redis":    redisDB,
		})

		rec := httptest.NewRecorder()
		handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		testutil.AssertStatusCode(t, rec, http.StatusServiceUnavailable)
		var response HealthResponse
		testutil.ParseJSONResponse(t, rec, &response)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "healthy", response.Services["postgres"])
		assert.Equal(t, "unhealthy", response.Services["redis"])
	})

	t.Run("store failure is reported by name", func(t *testing.T) {
		handler := NewHealthHandler(map[string]Pinger{
			"supabase": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		})

		rec := httptest.NewRecorder()
		handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"supabase":"unhealthy"`)
	})
}
