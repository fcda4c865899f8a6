package session

import "errors"

// Common session errors
var (
	// ErrSessionNotFound is returned when no entry exists for a session ID
	ErrSessionNotFound = errors.New("session not found")
)
