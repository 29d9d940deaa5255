package memory

import (
	"context"
	"sync"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
)

type MemoryLanRepository struct {
	records map[domain.UserID]*domain.LanRecord
	mu      sync.RWMutex
}

func NewMemoryLanRepository() ports.LanRepository {
	return &MemoryLanRepository{
		records: make(map[domain.UserID]*domain.LanRecord),
	}
}

func (r *MemoryLanRepository) Upsert(ctx context.Context, record *domain.LanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.UserID] = record
	return nil
}

func (r *MemoryLanRepository) GetByUser(ctx context.Context, userID domain.UserID) (*domain.LanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[userID]
	if !exists {
		return nil, domain.ErrLanRecordNotFound
	}
	return record, nil
}

func (r *MemoryLanRepository) Remove(ctx context.Context, userID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[userID]; !exists {
		return domain.ErrLanRecordNotFound
	}
	delete(r.records, userID)
	return nil
}

func (r *MemoryLanRepository) List(ctx context.Context) ([]*domain.LanRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.LanRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record)
	}
	return out, nil
}
