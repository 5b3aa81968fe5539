// Package retry provides an explicit retry policy with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryableError is an error that knows whether it can be retried.
type RetryableError interface {
	error
	Retryable() bool
}

// Policy defines retry behavior for a failing operation.
type Policy struct {
	// MaxAttempts is the total number of attempts (1 = no retries).
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration `json:"max_delay" mapstructure:"max_delay"`
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64 `json:"multiplier" mapstructure:"multiplier"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// ShouldRetry determines whether a failed attempt should be retried. attempt
// is 1-based. Errors implementing RetryableError decide for themselves;
// anything else is retried until attempts run out.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxAttempts {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	// Structured backend errors expose ShouldAutoRetry. The interface keeps
	// this package free of a backend import.
	type autoRetryChecker interface {
		error
		ShouldAutoRetry() bool
	}
	var checker autoRetryChecker
	if errors.As(err, &checker) {
		return checker.ShouldAutoRetry()
	}

	return true
}

// NextDelay calculates the backoff delay after the given 1-based attempt.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.InitialDelay
	}

	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Do runs op under the policy, sleeping between attempts. It returns nil on
// the first success, the last error once retries are exhausted or the error
// is non-retryable, and ctx.Err() if the context ends during a backoff wait.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !p.ShouldRetry(attempt, lastErr) {
			return lastErr
		}

		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// DoValue runs op under the policy and returns its value on success.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

// nonRetryableError wraps an error to mark it as non-retryable.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string   { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error   { return e.err }
func (e *nonRetryableError) Retryable() bool { return false }

// NonRetryable wraps an error to mark it as non-retryable.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}
