package client

import (
	"fmt"
)

// QuotaExceeded is returned when the local quota guard refuses an upstream
// call. Nothing was sent upstream and no token was fetched.
type QuotaExceeded struct {
	RetryAfterSeconds int
}

// Error implements the error interface.
func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("upstream quota exceeded, retry after %ds", e.RetryAfterSeconds)
}

// UpstreamError represents a failed item call with additional context.
// StatusCode is 0 when the request never produced a response.
type UpstreamError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string

	// RetryAfterSeconds is the upstream Retry-After hint, 0 when absent.
	RetryAfterSeconds int

	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying later.
// The client itself never retries.
func (e *UpstreamError) Transient() bool {
	switch e.ErrorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		return false
	}
}
