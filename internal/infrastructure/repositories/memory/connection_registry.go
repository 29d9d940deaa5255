package memory

import (
	"context"
	"sync"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
)

type MemoryConnectionRegistry struct {
	entries map[domain.UserID]*domain.ConnectionEntry
	mu      sync.RWMutex
}

func NewMemoryConnectionRegistry() ports.ConnectionRegistry {
	return &MemoryConnectionRegistry{
		entries: make(map[domain.UserID]*domain.ConnectionEntry),
	}
}

func (r *MemoryConnectionRegistry) Register(ctx context.Context, entry *domain.ConnectionEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Superseding semantics: a reconnect under the same identity simply
	// overwrites. Closing the stale transport session is the transport
	// layer's responsibility.
	_, superseded := r.entries[entry.UserID]
	r.entries[entry.UserID] = entry
	return superseded, nil
}

func (r *MemoryConnectionRegistry) Unregister(ctx context.Context, userID domain.UserID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[userID]; !exists {
		return false, nil
	}
	delete(r.entries, userID)
	return true, nil
}

func (r *MemoryConnectionRegistry) Lookup(ctx context.Context, userID domain.UserID) (*domain.ConnectionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[userID]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return entry, nil
}

func (r *MemoryConnectionRegistry) IsOnline(ctx context.Context, userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.entries[userID]
	return exists
}

func (r *MemoryConnectionRegistry) ListOnline(ctx context.Context) ([]*domain.ConnectionEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*domain.ConnectionEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}
