// Package retry re-runs transient operations with linear backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Attempts int
	Backoff  time.Duration // wait after attempt i is Backoff*(i+1)
}

// Default mirrors the download retries used for object storage.
var Default = Policy{Attempts: 3, Backoff: 500 * time.Millisecond}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do runs fn up to p.Attempts times, waiting longer after each failure.
// Context cancellation stops the loop between attempts.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := max(p.Attempts, 1)
	for i := 0; i < attempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		var permanent *PermanentError
		if errors.As(err, &permanent) {
			return zero, permanent.Err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(p.Backoff * time.Duration(i+1)):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
