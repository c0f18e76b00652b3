package resilience

import (
	"context"
	"errors"
	"time"
)

// Executor bounds and paces retried calls to a flaky remote collaborator.
//
// Attempts are separated by a fixed Delay; there is no backoff. Only errors
// accepted by RetryIf are retried, anything else propagates on first sight.
type Executor struct {
	// MaxTries is the total number of attempts. Zero disables execution.
	MaxTries int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
	// RetryIf selects the errors that are caught and retried.
	// Nil retries every error except context cancellation.
	RetryIf func(error) bool
	// OnRetry is called after a caught failure, before sleeping.
	OnRetry func(attempt int, err error)
}

// DefaultExecutor returns the executor used for remote sources: three tries,
// five seconds apart, retrying everything but context cancellation.
func DefaultExecutor() Executor {
	return Executor{
		MaxTries: 3,
		Delay:    5 * time.Second,
		RetryIf:  DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Catch returns a RetryIf predicate that matches errors of type E anywhere
// in the wrapped chain.
func Catch[E error]() func(error) bool {
	return func(err error) bool {
		var target E
		return errors.As(err, &target)
	}
}

// CatchAny combines predicates; an error is caught when any of them matches.
func CatchAny(preds ...func(error) bool) func(error) bool {
	return func(err error) bool {
		for _, p := range preds {
			if p != nil && p(err) {
				return true
			}
		}
		return false
	}
}

// Do runs fn under the executor's policy.
//
// With MaxTries == 0 fn is never invoked and the zero value is returned
// without error. On success the result is returned immediately. An error
// not caught by RetryIf is returned as is. When all attempts fail the last
// caught error is returned.
func Do[T any](ctx context.Context, ex Executor, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	retryIf := ex.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= ex.MaxTries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !retryIf(err) {
			return zero, err
		}
		lastErr = err

		if attempt == ex.MaxTries {
			break
		}
		if ex.OnRetry != nil {
			ex.OnRetry(attempt, err)
		}
		if ex.Delay <= 0 {
			continue
		}

		timer := time.NewTimer(ex.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// DoFunc runs an error-only fn under the executor's policy.
func DoFunc(ctx context.Context, ex Executor, fn func() error) error {
	_, err := Do(ctx, ex, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
