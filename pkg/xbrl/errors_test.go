package xbrl

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	authErr := &AuthFailedError{Reason: "upstream rejected credentials"}
	assert.True(t, IsAuthFailed(authErr))
	assert.True(t, IsAuthFailed(fmt.Errorf("wrapped: %w", authErr)))
	assert.False(t, IsAuthFailed(errors.New("other")))

	rlErr := &RateLimitedError{RetryAfter: 10 * time.Second, URL: "https://api.xbrl.us/api/v1/fact/search"}
	assert.True(t, IsRateLimited(rlErr))
	assert.Contains(t, rlErr.Error(), "retry after 10s")
	assert.False(t, IsRateLimited(authErr))

	cause := errors.New("connection refused")
	tErr := &TransientError{Op: "query", Cause: cause}
	assert.True(t, IsTransient(tErr))
	assert.ErrorIs(t, tErr, cause)

	httpErr := NewHTTPError(502, "https://api.xbrl.us/api/v1/fact/search", "bad gateway")
	assert.True(t, IsHTTPError(httpErr, 502))
	assert.True(t, IsHTTPError(httpErr, 0))
	assert.False(t, IsHTTPError(httpErr, 404))
	assert.False(t, IsHTTPError(errors.New("other"), 0))
}

func TestAuthFailedErrorUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("invalid_grant")
	err := &AuthFailedError{Reason: "rejected", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "rejected")
	assert.Contains(t, err.Error(), "invalid_grant")

	bare := &AuthFailedError{Reason: "rejected"}
	assert.NoError(t, bare.Unwrap())
	assert.Equal(t, "authentication failed: rejected", bare.Error())
}

func TestTokenExpiredIsDistinctFromAuthFailed(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("HTTP 401 for /fact/search: %w", ErrTokenExpired)
	assert.ErrorIs(t, wrapped, ErrTokenExpired)
	assert.False(t, IsAuthFailed(wrapped))
}
