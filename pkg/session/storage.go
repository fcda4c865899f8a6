package session

import (
	"context"
	"time"
)

// Storage defines the minimal interface for session storage backends.
// This interface is designed to be simple and efficient, supporting both
// local in-memory storage and distributed storage backends.
type Storage interface {
	// Store creates or updates a session entry in the storage backend.
	// If an entry already exists for the session, it is overwritten whole.
	Store(ctx context.Context, entry *Entry) error

	// Load retrieves a session entry by ID from the storage backend.
	// Returns ErrSessionNotFound if no entry exists for the session.
	Load(ctx context.Context, id string) (*Entry, error)

	// Delete removes a session entry from the storage backend.
	// It is not an error if the entry doesn't exist.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes all entries that haven't been updated since the
	// given time. This is used by the cleanup routine to remove stale entries.
	DeleteExpired(ctx context.Context, before time.Time) error

	// Close performs cleanup of the storage backend.
	// For local storage, this clears all entries. For remote storage, it
	// closes connections.
	Close() error
}
