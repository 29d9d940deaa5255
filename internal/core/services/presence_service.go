package services

import (
	"context"
	"sync"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"

	"go.uber.org/zap"
)

type presenceService struct {
	registry  ports.ConnectionRegistry
	publisher ports.PresencePublisher
	metrics   ports.MetricsSink
	logger    *zap.SugaredLogger

	mu    sync.Mutex
	hooks []func(ctx context.Context, userID domain.UserID)
}

// NewPresenceService builds the presence coordinator. publisher and metrics
// may be nil.
func NewPresenceService(
	registry ports.ConnectionRegistry,
	publisher ports.PresencePublisher,
	metrics ports.MetricsSink,
	logger *zap.SugaredLogger,
) ports.PresenceService {
	return &presenceService{
		registry:  registry,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

func (p *presenceService) Connect(ctx context.Context, userID domain.UserID, displayName string, handle domain.ConnectionHandle) error {
	entry := &domain.ConnectionEntry{
		UserID:      userID,
		Handle:      handle,
		DisplayName: displayName,
		ConnectedAt: time.Now(),
	}

	superseded, err := p.registry.Register(ctx, entry)
	if err != nil {
		return err
	}

	p.logger.Infow("user connected", "user_id", userID, "superseded", superseded)
	if p.metrics != nil {
		p.metrics.RecordConnect(superseded)
	}

	p.broadcastStatus(ctx, userID, true)
	p.publish(ctx, userID, true)

	// Presence sync: the new connection gets the full online list.
	online, err := p.registry.ListOnline(ctx)
	if err != nil {
		return err
	}
	users := make([]domain.UserID, 0, len(online))
	for _, e := range online {
		users = append(users, e.UserID)
	}
	if err := handle.Send(domain.Envelope{
		Type:    domain.MsgOnlineUsers,
		Payload: domain.OnlineUsersPayload{Users: users},
	}); err != nil {
		p.logger.Warnw("failed to send online list", "user_id", userID, "error", err)
	}

	return nil
}

func (p *presenceService) Disconnect(ctx context.Context, userID domain.UserID) error {
	removed, err := p.registry.Unregister(ctx, userID)
	if err != nil {
		return err
	}
	// Duplicate disconnect events produce no broadcast.
	if !removed {
		return nil
	}

	p.logger.Infow("user disconnected", "user_id", userID)
	if p.metrics != nil {
		p.metrics.RecordDisconnect()
	}

	p.broadcastStatus(ctx, userID, false)
	p.publish(ctx, userID, false)

	p.mu.Lock()
	hooks := make([]func(context.Context, domain.UserID), len(p.hooks))
	copy(hooks, p.hooks)
	p.mu.Unlock()

	for _, hook := range hooks {
		hook(ctx, userID)
	}

	return nil
}

func (p *presenceService) OnlineUsers(ctx context.Context) ([]*domain.ConnectionEntry, error) {
	return p.registry.ListOnline(ctx)
}

func (p *presenceService) IsOnline(ctx context.Context, userID domain.UserID) bool {
	return p.registry.IsOnline(ctx, userID)
}

func (p *presenceService) OnDisconnect(hook func(ctx context.Context, userID domain.UserID)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, hook)
}

// broadcastStatus pushes a status change to every registered connection,
// the subject's own included. Every registry transition produces exactly
// one broadcast.
func (p *presenceService) broadcastStatus(ctx context.Context, userID domain.UserID, isOnline bool) {
	online, err := p.registry.ListOnline(ctx)
	if err != nil {
		p.logger.Warnw("failed to list online users for broadcast", "error", err)
		return
	}

	msg := domain.Envelope{
		Type: domain.MsgUserStatusChange,
		Payload: domain.UserStatusChangePayload{
			UserID:   userID,
			IsOnline: isOnline,
		},
	}

	for _, entry := range online {
		if err := entry.Handle.Send(msg); err != nil {
			p.logger.Debugw("status broadcast delivery failed",
				"recipient", entry.UserID,
				"subject", userID,
				"error", err,
			)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordPresenceBroadcast(len(online))
	}
}

func (p *presenceService) publish(ctx context.Context, userID domain.UserID, isOnline bool) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishPresence(ctx, userID, isOnline); err != nil {
		p.logger.Warnw("presence publish failed", "user_id", userID, "error", err)
	}
}
