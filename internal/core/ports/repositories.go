package ports

import (
	"context"

	"signalhub/internal/core/domain"
)

// ConnectionRegistry owns the userId -> live connection mapping.
type ConnectionRegistry interface {
	// Register stores the entry, overwriting any prior entry for the same
	// user. Returns true when an entry was superseded.
	Register(ctx context.Context, entry *domain.ConnectionEntry) (bool, error)
	// Unregister removes the entry if present. Returns true when an entry
	// was actually removed, so duplicate disconnects stay silent.
	Unregister(ctx context.Context, userID domain.UserID) (bool, error)
	Lookup(ctx context.Context, userID domain.UserID) (*domain.ConnectionEntry, error)
	IsOnline(ctx context.Context, userID domain.UserID) bool
	ListOnline(ctx context.Context) ([]*domain.ConnectionEntry, error)
}

type CallRepository interface {
	Add(ctx context.Context, call *domain.DirectCall) error
	GetByID(ctx context.Context, id domain.CallID) (*domain.DirectCall, error)
	// FindByPair returns the non-terminal call between the two users, if any.
	FindByPair(ctx context.Context, a, b domain.UserID) (*domain.DirectCall, error)
	FindByUser(ctx context.Context, userID domain.UserID) ([]*domain.DirectCall, error)
	Update(ctx context.Context, call *domain.DirectCall) error
	Remove(ctx context.Context, id domain.CallID) error
	ListActive(ctx context.Context) ([]*domain.DirectCall, error)
}

type RoomRepository interface {
	Create(ctx context.Context, room *domain.CallRoom) error
	GetByGroup(ctx context.Context, groupID domain.GroupID) (*domain.CallRoom, error)
	Update(ctx context.Context, room *domain.CallRoom) error
	Remove(ctx context.Context, groupID domain.GroupID) error
	ListActive(ctx context.Context) ([]*domain.CallRoom, error)
	// FindByParticipant returns the rooms a user currently participates in.
	FindByParticipant(ctx context.Context, userID domain.UserID) ([]*domain.CallRoom, error)
}

type LanRepository interface {
	Upsert(ctx context.Context, record *domain.LanRecord) error
	GetByUser(ctx context.Context, userID domain.UserID) (*domain.LanRecord, error)
	Remove(ctx context.Context, userID domain.UserID) error
	List(ctx context.Context) ([]*domain.LanRecord, error)
}
