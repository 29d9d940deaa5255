package memory

import (
	"context"
	"sync"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
)

// MemoryCallRepository holds non-terminal direct calls. The coordinator
// removes calls when they reach a terminal state, so the pair index always
// reflects the "at most one live call per pair" invariant.
type MemoryCallRepository struct {
	calls  map[domain.CallID]*domain.DirectCall
	byPair map[string]domain.CallID
	mu     sync.RWMutex
}

func NewMemoryCallRepository() ports.CallRepository {
	return &MemoryCallRepository{
		calls:  make(map[domain.CallID]*domain.DirectCall),
		byPair: make(map[string]domain.CallID),
	}
}

func (r *MemoryCallRepository) Add(ctx context.Context, call *domain.DirectCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[call.ID] = call
	r.byPair[domain.PairKey(call.CallerID, call.ReceiverID)] = call.ID
	return nil
}

func (r *MemoryCallRepository) GetByID(ctx context.Context, id domain.CallID) (*domain.DirectCall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	call, exists := r.calls[id]
	if !exists {
		return nil, domain.ErrCallNotFound
	}
	return call, nil
}

func (r *MemoryCallRepository) FindByPair(ctx context.Context, a, b domain.UserID) (*domain.DirectCall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byPair[domain.PairKey(a, b)]
	if !exists {
		return nil, domain.ErrCallNotFound
	}
	call, exists := r.calls[id]
	if !exists {
		return nil, domain.ErrCallNotFound
	}
	return call, nil
}

func (r *MemoryCallRepository) FindByUser(ctx context.Context, userID domain.UserID) ([]*domain.DirectCall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.DirectCall
	for _, call := range r.calls {
		if call.CallerID == userID || call.ReceiverID == userID {
			out = append(out, call)
		}
	}
	return out, nil
}

func (r *MemoryCallRepository) Update(ctx context.Context, call *domain.DirectCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.ID]; !exists {
		return domain.ErrCallNotFound
	}
	r.calls[call.ID] = call
	return nil
}

func (r *MemoryCallRepository) Remove(ctx context.Context, id domain.CallID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, exists := r.calls[id]
	if !exists {
		return domain.ErrCallNotFound
	}
	delete(r.calls, id)

	key := domain.PairKey(call.CallerID, call.ReceiverID)
	if r.byPair[key] == id {
		delete(r.byPair, key)
	}
	return nil
}

func (r *MemoryCallRepository) ListActive(ctx context.Context) ([]*domain.DirectCall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.DirectCall, 0, len(r.calls))
	for _, call := range r.calls {
		out = append(out, call)
	}
	return out, nil
}
