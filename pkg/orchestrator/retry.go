package orchestrator

import (
	"context"
	"time"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
)

// RetryPolicy describes how failed generation requests are reattempted.
// The delay before retrying a failed attempt is BaseDelay doubled per
// attempt index: attempt 0 waits BaseDelay, attempt 1 waits 2x, and so on.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy returns the standard policy: three attempts with a
// one second initial delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the backoff delay scheduled after the given failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// SleepFunc waits for d or until the context is cancelled. Tests inject a
// recording implementation; production code uses ContextSleep.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep waits with a timer, honoring context cancellation.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ExecuteWithRetry runs fn up to policy.MaxAttempts times. Only errors
// marked retryable trigger another attempt; all others return immediately.
// The attempt index is passed to fn so callers can report it.
func ExecuteWithRetry(ctx context.Context, policy RetryPolicy, sleep SleepFunc, fn func(attempt int) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if sleep == nil {
		sleep = ContextSleep
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !zferrors.IsRetryable(err) || attempt == policy.MaxAttempts-1 {
			return err
		}
		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return zferrors.Wrap(zferrors.ErrCodeCancelled, err, "retry wait interrupted")
		}
	}
	return lastErr
}
