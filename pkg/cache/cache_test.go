package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCache(client), mr
}

func TestRemember(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	key := ForecastKey(-0.3031, 36.08)

	calls := 0
	load := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"daily":[{"rain":4.2}]}`), nil
	}

	first, err := c.Remember(ctx, key, time.Minute, load)
	require.NoError(t, err)
	assert.JSONEq(t, `{"daily":[{"rain":4.2}]}`, string(first))

	second, err := c.Remember(ctx, key, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	_, err = c.Remember(ctx, key, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRememberLoadError(t *testing.T) {
	c, mr := setupCache(t)

	upstream := errors.New("upstream down")
	_, err := c.Remember(context.Background(), "forecast:x", time.Minute, func(context.Context) ([]byte, error) {
		return nil, upstream
	})
	assert.ErrorIs(t, err, upstream)
	assert.False(t, mr.Exists("forecast:x"))
}

func TestRememberWithRedisDown(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	body, err := c.Remember(context.Background(), "forecast:y", time.Minute, func(context.Context) ([]byte, error) {
		return []byte(`{}`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(body))
}

func TestForecastKey(t *testing.T) {
	assert.Equal(t, "forecast:-0.3031,36.0800", ForecastKey(-0.30314, 36.08))
}
