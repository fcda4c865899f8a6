package session

import (
	"context"
	"sync"
	"time"

	"github.com/hamid-vakilzadeh/xbrl-us-mcp/pkg/logger"
)

// Manager wraps a Storage backend with optional TTL cleanup of idle entries.
// It implements Storage itself, so it can be dropped in wherever a backend is
// expected.
//
// The MCP transport owns session lifetime; it never signals session close to
// this package. With a zero TTL the map grows until the process restarts,
// bounded only by the transport's own session reaping. Deployments without
// external reaping should pass a TTL to evict entries idle longer than that
// duration (an entry is touched whenever its token is written).
type Manager struct {
	storage  Storage
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a session manager over the given storage backend.
// A positive ttl starts a cleanup worker that removes idle entries; a zero
// ttl disables cleanup entirely.
func NewManager(storage Storage, ttl time.Duration) *Manager {
	m := &Manager{
		storage: storage,
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	if ttl > 0 {
		m.wg.Add(1)
		go m.cleanupRoutine()
	}
	return m
}

func (m *Manager) cleanupRoutine() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.storage.DeleteExpired(context.Background(), time.Now().Add(-m.ttl)); err != nil {
				logger.Warnf("session cleanup failed: %v", err)
			}
		case <-m.stopCh:
			return
		}
	}
}

// Store saves a session entry via the underlying backend.
func (m *Manager) Store(ctx context.Context, entry *Entry) error {
	return m.storage.Store(ctx, entry)
}

// Load retrieves a session entry via the underlying backend.
func (m *Manager) Load(ctx context.Context, id string) (*Entry, error) {
	return m.storage.Load(ctx, id)
}

// Delete removes a session entry via the underlying backend.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.storage.Delete(ctx, id)
}

// DeleteExpired removes idle entries via the underlying backend.
func (m *Manager) DeleteExpired(ctx context.Context, before time.Time) error {
	return m.storage.DeleteExpired(ctx, before)
}

// Close stops the cleanup worker and closes the underlying backend.
// Safe to call multiple times.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
	return m.storage.Close()
}
