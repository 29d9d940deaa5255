package domain

import "time"

type RoomState string

const (
	RoomStateActive RoomState = "active"
	RoomStateEnded  RoomState = "ended"
)

type Participant struct {
	UserID      UserID
	DisplayName string
	JoinedAt    time.Time
	IsCreator   bool
}

// CallRoom is a group call. One active room per group at a time; the room is
// keyed by the owning group's identity.
//
// Participants and PendingInvites are disjoint: a user moves from invites to
// participants on join and is never re-added to invites on leave.
type CallRoom struct {
	GroupID        GroupID
	CreatorID      UserID
	Participants   map[UserID]*Participant
	PendingInvites map[UserID]time.Time
	State          RoomState
	CreatedAt      time.Time
}

func NewCallRoom(groupID GroupID, creatorID UserID, creatorName string) *CallRoom {
	room := &CallRoom{
		GroupID:        groupID,
		CreatorID:      creatorID,
		Participants:   make(map[UserID]*Participant),
		PendingInvites: make(map[UserID]time.Time),
		State:          RoomStateActive,
		CreatedAt:      time.Now(),
	}
	room.Participants[creatorID] = &Participant{
		UserID:      creatorID,
		DisplayName: creatorName,
		JoinedAt:    room.CreatedAt,
		IsCreator:   true,
	}
	return room
}

// Admit moves a user from pending invites into participants. Joining without
// a prior invite is allowed; joining twice is a no-op.
func (r *CallRoom) Admit(userID UserID, displayName string) bool {
	if _, ok := r.Participants[userID]; ok {
		return false
	}
	delete(r.PendingInvites, userID)
	r.Participants[userID] = &Participant{
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
	return true
}

// Evict removes a participant. Returns false if the user was not in the room.
func (r *CallRoom) Evict(userID UserID) bool {
	if _, ok := r.Participants[userID]; !ok {
		return false
	}
	delete(r.Participants, userID)
	return true
}

// Invite marks a user as pending. Already-pending and already-joined users
// are left untouched.
func (r *CallRoom) Invite(userID UserID) bool {
	if _, ok := r.Participants[userID]; ok {
		return false
	}
	if _, ok := r.PendingInvites[userID]; ok {
		return false
	}
	r.PendingInvites[userID] = time.Now()
	return true
}

func (r *CallRoom) Has(userID UserID) bool {
	_, ok := r.Participants[userID]
	return ok
}
