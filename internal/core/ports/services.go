package ports

import (
	"context"
	"encoding/json"

	"signalhub/internal/core/domain"
)

type PresenceService interface {
	// Connect registers the user's connection, broadcasts "online" and
	// sends the current online list to the new connection.
	Connect(ctx context.Context, userID domain.UserID, displayName string, handle domain.ConnectionHandle) error
	// Disconnect unregisters the connection and broadcasts "offline" only
	// if an entry was actually removed. Registered cleanup hooks run on
	// every effective disconnect.
	Disconnect(ctx context.Context, userID domain.UserID) error
	OnlineUsers(ctx context.Context) ([]*domain.ConnectionEntry, error)
	IsOnline(ctx context.Context, userID domain.UserID) bool
	// OnDisconnect registers a hook invoked after an effective unregister.
	OnDisconnect(hook func(ctx context.Context, userID domain.UserID))
}

type CallService interface {
	InitiateCall(ctx context.Context, callerID domain.UserID, callerName string, receiverID domain.UserID, isVideo bool) error
	AcceptCall(ctx context.Context, callerID, receiverID domain.UserID) error
	RejectCall(ctx context.Context, callerID, receiverID domain.UserID, reason string) error
	EndCall(ctx context.Context, userID, remoteUserID domain.UserID) error
	// EndAllForUser terminates every non-terminal call the user is part of,
	// notifying the other party. Used on disconnect.
	EndAllForUser(ctx context.Context, userID domain.UserID) error
	ActiveCalls(ctx context.Context) ([]*domain.DirectCall, error)
	// Shutdown stops all pending ring timers.
	Shutdown()
}

type RoomService interface {
	StartGroupCall(ctx context.Context, groupID domain.GroupID, creatorID domain.UserID, creatorName string) error
	InviteToGroupCall(ctx context.Context, groupID domain.GroupID, callerID domain.UserID, callerName, groupName string, receiverID domain.UserID) error
	JoinGroupCall(ctx context.Context, groupID domain.GroupID, userID domain.UserID, displayName string) error
	LeaveGroupCall(ctx context.Context, groupID domain.GroupID, userID domain.UserID) error
	EndGroupCall(ctx context.Context, groupID domain.GroupID, endedBy domain.UserID) error
	// LeaveAll removes the user from every room they participate in.
	// Used on disconnect.
	LeaveAll(ctx context.Context, userID domain.UserID) error
	ActiveRooms(ctx context.Context) ([]*domain.CallRoom, error)
}

type RelayService interface {
	// Relay forwards an opaque signaling payload to the target if online,
	// silently dropping it otherwise.
	Relay(ctx context.Context, kind domain.SignalKind, from, to domain.UserID, payload json.RawMessage) error
}

type LanService interface {
	ReportAddresses(ctx context.Context, userID domain.UserID, displayName string, addresses []string) error
	// ScanForPeers returns every other user with at least one reported
	// address in the same /24 subnet as one of the requester's addresses.
	ScanForPeers(ctx context.Context, userID domain.UserID, localAddresses []string) ([]domain.LanPeer, error)
	Forget(ctx context.Context, userID domain.UserID) error
}

// PresencePublisher fans presence transitions out to sibling instances.
type PresencePublisher interface {
	PublishPresence(ctx context.Context, userID domain.UserID, isOnline bool) error
}

// MetricsSink records coordinator-level metrics. Implementations must be
// safe for concurrent use; a nil sink disables recording.
type MetricsSink interface {
	RecordConnect(superseded bool)
	RecordDisconnect()
	RecordPresenceBroadcast(recipients int)
	RecordCallInitiated(isVideo bool)
	RecordCallOutcome(outcome domain.CallState, ringSeconds float64)
	RecordRoomCreated()
	RecordRoomDestroyed()
	RecordRelay(kind domain.SignalKind, delivered bool)
	RecordLanScan(matches int)
}
