// Package retry runs operations with bounded attempts and exponential backoff.
//
// Two styles are supported. [Retry] retries only errors wrapped with
// [RetryableError], which suits call sites that classify failures at the
// point they happen. [Policy] takes a classifier instead, which suits
// layers that receive already-coded errors (for example anything tagged
// GENERATIVE_UNAVAILABLE or CONVERSION_CRASH).
package retry

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	p := Policy{Attempts: attempts, Delay: delay, Retryable: IsRetryable}
	_, err := p.Do(ctx, func(context.Context, int) error { return fn() })
	return err
}

// IsRetryable reports whether err carries a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy describes a retry budget.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below 1 are treated as 1.
	Attempts int

	// Delay is the wait before the second attempt. It doubles after each
	// further failure.
	Delay time.Duration

	// MaxDelay caps the backoff. Zero means no cap.
	MaxDelay time.Duration

	// Retryable classifies errors. A nil classifier retries every error.
	Retryable func(error) bool

	// OnRetry is called before sleeping, with the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do calls fn until it succeeds, returns a non-retryable error, the budget
// is spent, or ctx is done. fn receives the 1-based attempt number.
// It returns the number of attempts made alongside the final error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return i - 1, lastErr
			}
			return i - 1, err
		}

		err := fn(ctx, i)
		if err == nil {
			return i, nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return i, err
		}
		if i == attempts {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(i, err, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return i, lastErr
		case <-timer.C:
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return attempts, lastErr
}
