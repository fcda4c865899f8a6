package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalStorage implements the Storage interface using an in-memory sync.Map.
// This is the default storage backend for single-instance deployments.
// Store is a single atomic replace per key, so concurrent resolves for the
// same session can never leave a partially written entry.
type LocalStorage struct {
	entries sync.Map
}

// NewLocalStorage creates a new local in-memory storage backend.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Store saves a session entry to the local storage.
func (s *LocalStorage) Store(_ context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cannot store nil entry")
	}
	if entry.ID == "" {
		return fmt.Errorf("cannot store entry with empty session ID")
	}

	s.entries.Store(entry.ID, entry)
	return nil
}

// Load retrieves a session entry from local storage.
func (s *LocalStorage) Load(_ context.Context, id string) (*Entry, error) {
	if id == "" {
		return nil, fmt.Errorf("cannot load entry with empty session ID")
	}

	val, ok := s.entries.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry, ok := val.(*Entry)
	if !ok {
		return nil, fmt.Errorf("invalid entry type in storage")
	}

	return entry, nil
}

// Delete removes a session entry from local storage.
func (s *LocalStorage) Delete(_ context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("cannot delete entry with empty session ID")
	}

	s.entries.Delete(id)
	return nil
}

// DeleteExpired removes all entries that haven't been updated since the given time.
func (s *LocalStorage) DeleteExpired(ctx context.Context, before time.Time) error {
	var toDelete []string

	// First pass: collect IDs of expired entries
	s.entries.Range(func(key, val any) bool {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return false
		default:
		}

		if entry, ok := val.(*Entry); ok {
			if entry.UpdatedAt.Before(before) {
				if id, ok := key.(string); ok {
					toDelete = append(toDelete, id)
				}
			}
		}
		return true
	})

	// Second pass: delete expired entries
	for _, id := range toDelete {
		s.entries.Delete(id)
	}

	return nil
}

// Close clears all entries from local storage.
func (s *LocalStorage) Close() error {
	// Collect keys first to avoid modifying map during iteration
	var toDelete []any
	s.entries.Range(func(key, _ any) bool {
		toDelete = append(toDelete, key)
		return true
	})
	for _, key := range toDelete {
		s.entries.Delete(key)
	}
	return nil
}

// Count returns the number of entries in storage.
// This is a helper method not part of the Storage interface.
func (s *LocalStorage) Count() int {
	count := 0
	s.entries.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Range iterates over all entries in storage.
// This is a helper method not part of the Storage interface.
func (s *LocalStorage) Range(f func(key, value any) bool) {
	s.entries.Range(f)
}
