package util

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Backoff is a retry policy: a fixed number of attempts separated by a fixed
// delay, optionally spread by a random jitter fraction. It composes with
// context cancellation so callers can abort a retry loop mid-sleep.
type Backoff struct {
	MaxAttempts int
	Delay       time.Duration
	// Jitter in [0,1] adds up to Jitter*Delay of random extra sleep per attempt.
	Jitter float64
}

// Do calls fn until it succeeds, the attempts are exhausted, or ctx is done.
// Context errors and errors fn marks permanent via Permanent are returned
// immediately without further attempts.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := b.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		if err := sleepCtx(ctx, b.sleepFor()); err != nil {
			return err
		}
	}
	return lastErr
}

func (b Backoff) sleepFor() time.Duration {
	d := b.Delay
	if d <= 0 {
		return 0
	}
	if b.Jitter > 0 {
		d += time.Duration(rand.Float64() * b.Jitter * float64(b.Delay))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Backoff.Do stops retrying and returns it as-is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
