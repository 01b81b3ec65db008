package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mkulima/asha/internal/database"
	"github.com/redis/go-redis/v9"
)

// NewTestRedisDB starts a miniredis server for the test and returns a
// RedisDB connected to it. Both are closed when the test ends.
func NewTestRedisDB(t *testing.T) (*database.RedisDB, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return database.NewRedisDBFromClient(client), mr
}
