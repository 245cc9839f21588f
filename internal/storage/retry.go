package storage

import (
	"context"
	"time"
)

// RetryPolicy bounds connection attempts to a backend.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// WithRetry calls fn until it succeeds or the policy is exhausted, doubling the
// delay after each failure up to MaxDelay. onRetry, when set, sees every failed attempt
// that will be retried.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error, onRetry func(attempt int, err error)) error {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = 100 * time.Millisecond
	}

	delay := policy.BaseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= policy.MaxRetries {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}
