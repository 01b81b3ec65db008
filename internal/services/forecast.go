package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkulima/asha/internal/apperr"
	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/pkg/cache"
	"github.com/rs/zerolog/log"
)

// ForecastClient fetches weather forecasts from the forecast proxy. The
// response body is passed through untouched.
//
// When a cache is configured, successful responses are kept for ttl under
// cache.ForecastKey. Cache failures never fail a fetch.
type ForecastClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache // Optional; nil disables caching
	ttl        time.Duration
}

// NewForecastClient creates a forecast client.
//
// Parameters:
//   - baseURL: Proxy URL; lat and lon are added as query parameters
//   - httpClient: HTTP client (nil uses a client with a 10s timeout)
//   - c: Optional cache for responses
//   - ttl: How long responses stay cached
//
// Example:
//
//	forecasts := services.NewForecastClient(cfg.Forecast.URL, nil, cache.NewCache(redisDB.Client()), 30*time.Minute)
//	body, err := forecasts.Forecast(ctx, -0.3031, 36.08)
func NewForecastClient(baseURL string, httpClient *http.Client, c *cache.Cache, ttl time.Duration) *ForecastClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ForecastClient{baseURL: baseURL, httpClient: httpClient, cache: c, ttl: ttl}
}

// Forecast returns the forecast JSON for a point.
func (f *ForecastClient) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	if f.baseURL == "" {
		return nil, apperr.Configuration("Forecast URL is not configured", nil)
	}
	if f.cache == nil {
		return f.fetch(ctx, lat, lon)
	}

	body, err := f.cache.Remember(ctx, cache.ForecastKey(lat, lon), f.ttl, func(ctx context.Context) ([]byte, error) {
		return f.fetch(ctx, lat, lon)
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (f *ForecastClient) fetch(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, apperr.Configuration("Forecast URL is invalid", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream("forecast", "get", "error", time.Since(start))
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("forecast", "get", strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read forecast: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream("Forecast request failed", resp.StatusCode, string(body))
	}
	if !json.Valid(body) {
		return nil, apperr.Upstream("Forecast response is not JSON", resp.StatusCode, "")
	}

	log.Debug().Float64("lat", lat).Float64("lon", lon).Msg("Forecast fetched")
	return json.RawMessage(body), nil
}
