// Package session provides the in-memory store for per-session
// authentication state, with pluggable storage backends and optional TTL
// cleanup of idle entries.
package session

import (
	"time"

	"golang.org/x/oauth2"
)

// Entry is the cached authentication state for one MCP session: the
// credential fingerprint it was obtained with and the live access token.
//
// Entries are immutable once stored. Re-authentication replaces the whole
// entry (fingerprint and token together) via Storage.Store; fields are never
// patched in place. This keeps concurrent readers race-free without locking.
type Entry struct {
	// ID is the session identifier assigned by the MCP transport.
	ID string

	// Fingerprint is the SHA-256 digest of the credential set the token
	// was obtained with. Used for equality comparison only.
	Fingerprint string

	// Token is the upstream access token, including its absolute expiry.
	Token *oauth2.Token

	// CreatedAt is when the first entry for this session was stored.
	CreatedAt time.Time

	// UpdatedAt is when this entry was stored. Idle-session cleanup keys
	// off this timestamp.
	UpdatedAt time.Time
}

// NewEntry creates a session entry with both timestamps set to now.
func NewEntry(id, fingerprint string, token *oauth2.Token) *Entry {
	now := time.Now()
	return &Entry{
		ID:          id,
		Fingerprint: fingerprint,
		Token:       token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Replace returns a new entry for the same session with a fresh fingerprint
// and token. CreatedAt is carried over; UpdatedAt is set to now.
func (e *Entry) Replace(fingerprint string, token *oauth2.Token) *Entry {
	return &Entry{
		ID:          e.ID,
		Fingerprint: fingerprint,
		Token:       token,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   time.Now(),
	}
}
