package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/pkg/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastClient(t *testing.T) {
	ctx := context.Background()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("lat") == "99" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad coordinates"}`))
			return
		}
		assert.Equal(t, "-0.3031", r.URL.Query().Get("lat"))
		assert.Equal(t, "36.08", r.URL.Query().Get("lon"))
		w.Write([]byte(`{"current":{"tempC":22}}`))
	}))
	defer server.Close()

	t.Run("caches successful responses", func(t *testing.T) {
		hits.Store(0)
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()

		forecasts := NewForecastClient(server.URL, server.Client(), cache.NewCache(client), time.Minute)

		body, err := forecasts.Forecast(ctx, -0.3031, 36.08)
		require.NoError(t, err)
		assert.JSONEq(t, `{"current":{"tempC":22}}`, string(body))

		_, err = forecasts.Forecast(ctx, -0.3031, 36.08)
		require.NoError(t, err)
		assert.Equal(t, int32(1), hits.Load())
		assert.True(t, mr.Exists(cache.ForecastKey(-0.3031, 36.08)))
	})

	t.Run("works without cache", func(t *testing.T) {
		hits.Store(0)
		forecasts := NewForecastClient(server.URL, server.Client(), nil, time.Minute)
		_, err := forecasts.Forecast(ctx, -0.3031, 36.08)
		require.NoError(t, err)
		_, err = forecasts.Forecast(ctx, -0.3031, 36.08)
		require.NoError(t, err)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("non-2xx is upstream error", func(t *testing.T) {
		forecasts := NewForecastClient(server.URL, server.Client(), nil, time.Minute)
		_, err := forecasts.Forecast(ctx, 99, 0)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindUpstream))
	})

	t.Run("unconfigured", func(t *testing.T) {
		_, err := NewForecastClient("", nil, nil, time.Minute).Forecast(ctx, 1, 1)
		assert.True(t, apperr.Is(err, apperr.KindConfiguration))
	})
}
