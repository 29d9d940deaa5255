package services

import (
	"context"
	"sync"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"

	"go.uber.org/zap"
)

type roomService struct {
	rooms    ports.RoomRepository
	registry ports.ConnectionRegistry
	metrics  ports.MetricsSink
	logger   *zap.SugaredLogger

	mu sync.Mutex
}

// NewRoomService builds the group call coordinator. All operations are
// tolerant: a stray message for an unknown room or user is a no-op, never
// a hard error, so out-of-order or duplicated delivery cannot corrupt room
// state.
func NewRoomService(
	rooms ports.RoomRepository,
	registry ports.ConnectionRegistry,
	metrics ports.MetricsSink,
	logger *zap.SugaredLogger,
) ports.RoomService {
	return &roomService{
		rooms:    rooms,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *roomService) StartGroupCall(ctx context.Context, groupID domain.GroupID, creatorID domain.UserID, creatorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, _ := s.rooms.GetByGroup(ctx, groupID); existing != nil {
		s.logger.Debugw("group call already active", "group_id", groupID)
		return nil
	}

	room := domain.NewCallRoom(groupID, creatorID, creatorName)
	if err := s.rooms.Create(ctx, room); err != nil {
		return err
	}

	s.logger.Infow("group call started", "group_id", groupID, "creator_id", creatorID)
	if s.metrics != nil {
		s.metrics.RecordRoomCreated()
	}
	return nil
}

func (s *roomService) InviteToGroupCall(ctx context.Context, groupID domain.GroupID, callerID domain.UserID, callerName, groupName string, receiverID domain.UserID) error {
	s.mu.Lock()
	room, _ := s.rooms.GetByGroup(ctx, groupID)
	if room == nil {
		s.mu.Unlock()
		return nil
	}

	if !room.Invite(receiverID) {
		// Already pending or already joined.
		s.mu.Unlock()
		return nil
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	if groupName == "" {
		groupName = string(groupID)
	}

	s.logger.Infow("group call invitation", "group_id", groupID, "from", callerID, "to", receiverID)

	s.send(ctx, receiverID, domain.Envelope{
		Type: domain.MsgGroupCallInvitation,
		Payload: domain.GroupCallInvitationPayload{
			CallerID:   callerID,
			CallerName: callerName,
			GroupID:    groupID,
			GroupName:  groupName,
			Timestamp:  time.Now().UnixMilli(),
		},
	})
	return nil
}

func (s *roomService) JoinGroupCall(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName string) error {
	s.mu.Lock()
	room, _ := s.rooms.GetByGroup(ctx, groupID)
	if room == nil {
		s.mu.Unlock()
		return nil
	}

	// Uninvited joins are admitted; duplicate joins are no-ops.
	if !room.Admit(userID, displayName) {
		s.mu.Unlock()
		return nil
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		s.mu.Unlock()
		return err
	}
	recipients := s.participantsLocked(room)
	s.mu.Unlock()

	s.logger.Infow("participant joined group call", "group_id", groupID, "user_id", userID)

	// Every existing participant's WebRTC layer initiates its own peer
	// connection to the joiner (full mesh); the coordinator only delivers
	// the join event.
	s.broadcast(ctx, recipients, domain.Envelope{
		Type: domain.MsgParticipantJoined,
		Payload: domain.ParticipantJoinedPayload{
			GroupID:     groupID,
			UserID:      userID,
			DisplayName: displayName,
		},
	})
	return nil
}

func (s *roomService) LeaveGroupCall(ctx context.Context, groupID domain.GroupID, userID domain.UserID) error {
	s.mu.Lock()
	room, _ := s.rooms.GetByGroup(ctx, groupID)
	if room == nil {
		s.mu.Unlock()
		return nil
	}

	if !room.Evict(userID) {
		s.mu.Unlock()
		return nil
	}

	if len(room.Participants) == 0 {
		s.destroyLocked(ctx, room)
		s.mu.Unlock()
		s.logger.Infow("group call drained", "group_id", groupID)
		return nil
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		s.mu.Unlock()
		return err
	}
	recipients := s.participantsLocked(room)
	s.mu.Unlock()

	s.logger.Infow("participant left group call", "group_id", groupID, "user_id", userID)

	s.broadcast(ctx, recipients, domain.Envelope{
		Type: domain.MsgParticipantLeft,
		Payload: domain.ParticipantLeftPayload{
			GroupID: groupID,
			UserID:  userID,
		},
	})
	return nil
}

func (s *roomService) EndGroupCall(ctx context.Context, groupID domain.GroupID, endedBy domain.UserID) error {
	s.mu.Lock()
	room, _ := s.rooms.GetByGroup(ctx, groupID)
	if room == nil {
		s.mu.Unlock()
		return nil
	}

	// Only the creator may tear the room down.
	if room.CreatorID != endedBy {
		s.mu.Unlock()
		s.logger.Debugw("ignoring end request from non-creator", "group_id", groupID, "user_id", endedBy)
		return nil
	}

	recipients := s.participantsLocked(room)
	s.destroyLocked(ctx, room)
	s.mu.Unlock()

	s.logger.Infow("group call ended", "group_id", groupID, "ended_by", endedBy)

	s.broadcast(ctx, recipients, domain.Envelope{
		Type:    domain.MsgGroupCallEnded,
		Payload: domain.GroupCallEndedPayload{GroupID: groupID},
	})
	return nil
}

func (s *roomService) LeaveAll(ctx context.Context, userID domain.UserID) error {
	rooms, err := s.rooms.FindByParticipant(ctx, userID)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if err := s.LeaveGroupCall(ctx, room.GroupID, userID); err != nil {
			s.logger.Warnw("failed to remove user from room", "group_id", room.GroupID, "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *roomService) ActiveRooms(ctx context.Context) ([]*domain.CallRoom, error) {
	return s.rooms.ListActive(ctx)
}

// destroyLocked must be called with s.mu held.
func (s *roomService) destroyLocked(ctx context.Context, room *domain.CallRoom) {
	room.State = domain.RoomStateEnded
	if err := s.rooms.Remove(ctx, room.GroupID); err != nil {
		s.logger.Warnw("failed to remove room", "group_id", room.GroupID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.RecordRoomDestroyed()
	}
}

func (s *roomService) participantsLocked(room *domain.CallRoom) []domain.UserID {
	out := make([]domain.UserID, 0, len(room.Participants))
	for id := range room.Participants {
		out = append(out, id)
	}
	return out
}

func (s *roomService) broadcast(ctx context.Context, recipients []domain.UserID, msg domain.Envelope) {
	for _, userID := range recipients {
		s.send(ctx, userID, msg)
	}
}

func (s *roomService) send(ctx context.Context, userID domain.UserID, msg domain.Envelope) {
	entry, err := s.registry.Lookup(ctx, userID)
	if err != nil {
		s.logger.Debugw("dropping room message for offline user", "user_id", userID, "type", msg.Type)
		return
	}
	if err := entry.Handle.Send(msg); err != nil {
		s.logger.Warnw("room push failed", "user_id", userID, "type", msg.Type, "error", err)
	}
}
