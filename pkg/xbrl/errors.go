package xbrl

import (
	"errors"
	"fmt"
	"time"
)

// ErrTokenExpired is returned by query calls when the upstream API rejects a
// bearer token that was previously valid. It is distinct from AuthFailedError
// so callers can tell "needs re-auth" apart from "credentials are wrong".
var ErrTokenExpired = errors.New("access token expired or revoked upstream")

// AuthFailedError indicates that the upstream token endpoint rejected the
// supplied credentials. It is not retryable with the same credentials.
type AuthFailedError struct {
	// Reason is a short description of the rejection, taken from the OAuth
	// error response when the server provided one.
	Reason string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *AuthFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s: %s", e.Reason, e.Cause)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Cause
}

// IsAuthFailed checks if an error is an AuthFailedError.
func IsAuthFailed(err error) bool {
	var authErr *AuthFailedError
	return errors.As(err, &authErr)
}

// RateLimitedError indicates the upstream API returned a rate-limit response.
type RateLimitedError struct {
	// RetryAfter is the wait hint from the Retry-After header, zero when the
	// server did not provide one.
	RetryAfter time.Duration

	// URL is the requested URL.
	URL string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by upstream for URL %s, retry after %s", e.URL, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by upstream for URL %s", e.URL)
}

// IsRateLimited checks if an error is a RateLimitedError.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitedError
	return errors.As(err, &rlErr)
}

// TransientError indicates a network-level failure (timeout, connection
// refused) where a retry with backoff may succeed. The client never retries
// internally; the hint is for the caller.
type TransientError struct {
	// Op is the operation that failed, e.g. "authenticate" or "query".
	Op string

	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient network error during %s: %s", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Cause
}

// IsTransient checks if an error is a TransientError.
func IsTransient(err error) bool {
	var tErr *TransientError
	return errors.As(err, &tErr)
}

// HTTPError represents an unexpected HTTP error response with status code,
// URL, and message.
type HTTPError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is a description of the error (may be a preview of the response body).
	Message string

	// URL is the requested URL.
	URL string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// IsHTTPError checks if an error is an HTTPError with the specified status code.
// If statusCode is 0, it matches any HTTPError.
func IsHTTPError(err error, statusCode int) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if statusCode == 0 {
		return true
	}
	return httpErr.StatusCode == statusCode
}
