package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Backoff controls how often an operation is attempted and how long Retry
// waits in between. The wait after attempt n is Initial*Factor^(n-1),
// capped at Max, with ±25% jitter when Jitter is set.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Jitter   bool
}

// ConnectBackoff is used when dialling the session store and Redis at
// start-up: five attempts over roughly two seconds.
func ConnectBackoff() Backoff {
	return Backoff{
		Attempts: 5,
		Initial:  100 * time.Millisecond,
		Max:      3 * time.Second,
		Factor:   2,
		Jitter:   true,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Retry returns the wrapped
// error immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a Permanent error, runs out of
// attempts, or ctx is done. fn receives the 1-based attempt number.
//
// Example:
//
//	err := utils.Retry(ctx, utils.ConnectBackoff(), "postgres connect", func(ctx context.Context, attempt int) error {
//	    return db.PingContext(ctx)
//	})
func Retry(ctx context.Context, b Backoff, operation string, fn func(ctx context.Context, attempt int) error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}

	var err error
	for attempt := 1; attempt <= b.Attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			if attempt > 1 {
				log.Info().
					Str("operation", operation).
					Int("attempt", attempt).
					Msg("Operation succeeded after retry")
			}
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == b.Attempts {
			break
		}

		delay := b.delay(attempt)
		log.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", b.Attempts).
			Dur("retry_in", delay).
			Msg("Operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, errors.Join(ctx.Err(), err))
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, b.Attempts, err)
}

func (b Backoff) delay(attempt int) time.Duration {
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(b.Initial) * math.Pow(factor, float64(attempt-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter {
		spread := d * 0.25
		d += rand.Float64()*2*spread - spread
	}
	return time.Duration(d)
}
