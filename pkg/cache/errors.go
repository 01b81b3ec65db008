package cache

import "errors"

// ErrCacheMiss is returned by Get when key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")
