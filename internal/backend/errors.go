package backend

import (
	"errors"
	"fmt"
)

// Code classifies backend errors.
type Code string

const (
	// Authentication and request errors, never retried.
	CodeAuthFailed     Code = "AUTH_FAILED"
	CodeInvalidRequest Code = "INVALID_REQUEST"

	// Transient errors, retried with backoff.
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeNetworkError       Code = "NETWORK_ERROR"
	CodeTimeout            Code = "TIMEOUT"

	// CodeDegradedOutput marks empty, pathologically short or safety-filtered
	// output. Not retried against the same backend; the chain advances.
	CodeDegradedOutput Code = "DEGRADED_OUTPUT"

	CodeUnknown Code = "UNKNOWN"
)

// Error is a structured error for backend operations.
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Backend   string `json:"backend"`
	Retryable bool   `json:"retryable"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Backend, e.Code, e.Message)
}

// ShouldAutoRetry reports whether the retry executor may retry this error
// against the same backend. Degraded output is never retried in place.
func (e *Error) ShouldAutoRetry() bool {
	if e.Code == CodeDegradedOutput {
		return false
	}
	return e.Retryable
}

// NewError creates a structured backend error.
func NewError(code Code, message, backendName string, retryable bool) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Backend:   backendName,
		Retryable: retryable,
	}
}

// IsRetryable reports whether the error is a transient backend error worth
// retrying against the same backend.
func IsRetryable(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// IsDegraded reports whether the error marks degraded output. Degraded output
// triggers fallback to the next backend instead of a retry.
func IsDegraded(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == CodeDegradedOutput
	}
	return false
}
