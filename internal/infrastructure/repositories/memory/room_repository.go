package memory

import (
	"context"
	"sync"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
)

type MemoryRoomRepository struct {
	rooms map[domain.GroupID]*domain.CallRoom
	mu    sync.RWMutex
}

func NewMemoryRoomRepository() ports.RoomRepository {
	return &MemoryRoomRepository{
		rooms: make(map[domain.GroupID]*domain.CallRoom),
	}
}

func (r *MemoryRoomRepository) Create(ctx context.Context, room *domain.CallRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.GroupID]; exists {
		return domain.ErrRoomExists
	}
	r.rooms[room.GroupID] = room
	return nil
}

func (r *MemoryRoomRepository) GetByGroup(ctx context.Context, groupID domain.GroupID) (*domain.CallRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, exists := r.rooms[groupID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (r *MemoryRoomRepository) Update(ctx context.Context, room *domain.CallRoom) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[room.GroupID]; !exists {
		return domain.ErrRoomNotFound
	}
	r.rooms[room.GroupID] = room
	return nil
}

func (r *MemoryRoomRepository) Remove(ctx context.Context, groupID domain.GroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[groupID]; !exists {
		return domain.ErrRoomNotFound
	}
	delete(r.rooms, groupID)
	return nil
}

func (r *MemoryRoomRepository) ListActive(ctx context.Context) ([]*domain.CallRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.CallRoom, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	return out, nil
}

func (r *MemoryRoomRepository) FindByParticipant(ctx context.Context, userID domain.UserID) ([]*domain.CallRoom, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.CallRoom
	for _, room := range r.rooms {
		if room.Has(userID) {
			out = append(out, room)
		}
	}
	return out, nil
}
