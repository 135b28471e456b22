package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrRateLimited marks a backend error as a 429-class throttle. Backends wrap
// their throttling errors with it.
var ErrRateLimited = errors.New("rate limited")

// minBaseDelay keeps doubling ahead of the up-to-one-second jitter, so each
// wait is longer than the one before it.
const minBaseDelay = time.Second

// Backoff configures Retry. Zero fields take defaults and BaseDelay is
// raised to at least one second.
type Backoff struct {
	MaxRetries int
	BaseDelay  time.Duration
	// Jitter returns the random sub-second delay added to every wait.
	Jitter func() time.Duration
	Sleep  func(ctx context.Context, d time.Duration) error
	// Retryable selects the errors worth retrying; nil means ErrRateLimited.
	Retryable func(error) bool
	OnRetry   func(attempt int, delay time.Duration, err error)
}

func DefaultBackoff() Backoff {
	return Backoff{MaxRetries: 3, BaseDelay: minBaseDelay}
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := max(b.BaseDelay, minBaseDelay) << attempt
	if b.Jitter != nil {
		d += b.Jitter()
	}
	return d
}

func (b Backoff) withDefaults() Backoff {
	if b.MaxRetries < 0 {
		b.MaxRetries = 0
	}
	if b.BaseDelay < minBaseDelay {
		b.BaseDelay = minBaseDelay
	}
	if b.Jitter == nil {
		b.Jitter = func() time.Duration { return rand.N(time.Second) }
	}
	if b.Sleep == nil {
		b.Sleep = sleep
	}
	if b.Retryable == nil {
		b.Retryable = func(err error) bool { return errors.Is(err, ErrRateLimited) }
	}
	return b
}

// Retry calls op until it succeeds, fails with a non-retryable error, or
// MaxRetries retries are spent, so op runs at most MaxRetries+1 times. The
// wait before retry i is BaseDelay*2^i plus jitter.
func Retry[T any](ctx context.Context, b Backoff, op func(context.Context) (T, error)) (T, error) {
	b = b.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !b.Retryable(err) {
			return zero, err
		}
		if attempt >= b.MaxRetries {
			return zero, fmt.Errorf("giving up after %d retries: %w", attempt, err)
		}

		delay := b.Delay(attempt)
		if b.OnRetry != nil {
			b.OnRetry(attempt+1, delay, err)
		}
		if serr := b.Sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
