package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cofre/internal/service"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryableError marks an error as retryable or not, overriding IsRetryable's defaults.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Backoff used when RetryOptions leaves a field unset.
const (
	defaultRetryAttempts   = 3
	defaultRetryDelay      = 25 * time.Millisecond
	defaultRetryMaxDelay   = time.Second
	defaultRetryMultiplier = 2.0
)

func withRetryDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultRetryAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = defaultRetryDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultRetryMaxDelay
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = defaultRetryMultiplier
	}
	return opts
}

// WithRetry runs operation until it succeeds, fails with an error IsRetryable
// rejects, runs out of attempts, or ctx is done. Exhaustion wraps both
// ErrMaxRetries and the last error.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = withRetryDefaults(opts)

	delay := opts.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == opts.MaxAttempts {
			break
		}

		LogWarn(lastErr, "Store busy, retrying", Fields{
			"attempt":      attempt,
			"max_attempts": opts.MaxAttempts,
			"delay":        delay.String(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, lastErr)
}
