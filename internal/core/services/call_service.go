package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRejectReason = "Call rejected"

type callService struct {
	calls    ports.CallRepository
	registry ports.ConnectionRegistry
	metrics  ports.MetricsSink
	logger   *zap.SugaredLogger

	ringTimeout time.Duration

	// mu serializes state transitions. Outbound pushes happen after the
	// lock is released, never under it.
	mu     sync.Mutex
	timers map[domain.CallID]*time.Timer
}

// NewCallService builds the one-to-one call coordinator. ringTimeout bounds
// how long a call may stay in ringing before it times out.
func NewCallService(
	calls ports.CallRepository,
	registry ports.ConnectionRegistry,
	ringTimeout time.Duration,
	metrics ports.MetricsSink,
	logger *zap.SugaredLogger,
) ports.CallService {
	return &callService{
		calls:       calls,
		registry:    registry,
		metrics:     metrics,
		logger:      logger,
		ringTimeout: ringTimeout,
		timers:      make(map[domain.CallID]*time.Timer),
	}
}

// push is a deferred outbound message, delivered after locks are dropped.
type push struct {
	to  domain.UserID
	msg domain.Envelope
}

func (s *callService) InitiateCall(ctx context.Context, callerID domain.UserID, callerName string, receiverID domain.UserID, isVideo bool) error {
	if callerID == receiverID {
		return domain.ErrSelfCall
	}

	// Fail fast for unreachable callees: no ringing state is ever created.
	if !s.registry.IsOnline(ctx, receiverID) {
		return domain.ErrUserOffline
	}

	s.mu.Lock()
	existing, err := s.calls.FindByPair(ctx, callerID, receiverID)
	if err != nil && !errors.Is(err, domain.ErrCallNotFound) {
		s.mu.Unlock()
		return err
	}
	if existing != nil {
		s.mu.Unlock()
		return domain.ErrPairBusy
	}

	call := &domain.DirectCall{
		ID:          domain.CallID(uuid.New().String()),
		CallerID:    callerID,
		CallerName:  callerName,
		ReceiverID:  receiverID,
		IsVideo:     isVideo,
		State:       domain.CallStateRinging,
		InitiatedAt: time.Now(),
	}
	if err := s.calls.Add(ctx, call); err != nil {
		s.mu.Unlock()
		return err
	}

	callID := call.ID
	s.timers[callID] = time.AfterFunc(s.ringTimeout, func() {
		s.timeoutCall(context.Background(), callID)
	})
	s.mu.Unlock()

	s.logger.Infow("call initiated",
		"call_id", call.ID,
		"caller_id", callerID,
		"receiver_id", receiverID,
		"is_video", isVideo,
	)
	if s.metrics != nil {
		s.metrics.RecordCallInitiated(isVideo)
	}

	now := time.Now().UnixMilli()
	s.deliver(ctx,
		push{to: receiverID, msg: domain.Envelope{
			Type: domain.MsgIncomingCall,
			Payload: domain.IncomingCallPayload{
				CallerID:   callerID,
				CallerName: callerName,
				IsVideo:    isVideo,
				Timestamp:  now,
			},
		}},
		push{to: callerID, msg: domain.Envelope{
			Type: domain.MsgCallInitiated,
			Payload: domain.CallInitiatedPayload{
				ReceiverID: receiverID,
				Timestamp:  now,
			},
		}},
	)

	return nil
}

func (s *callService) AcceptCall(ctx context.Context, callerID, receiverID domain.UserID) error {
	s.mu.Lock()
	call, err := s.calls.FindByPair(ctx, callerID, receiverID)
	if err != nil || call == nil {
		s.mu.Unlock()
		return domain.ErrCallNotFound
	}

	// A second accept for an already-connected pair is a no-op.
	if call.State == domain.CallStateConnected {
		s.mu.Unlock()
		return nil
	}
	if call.State != domain.CallStateRinging || call.CallerID != callerID || call.ReceiverID != receiverID {
		s.mu.Unlock()
		return domain.ErrCallNotFound
	}

	s.stopTimer(call.ID)
	call.State = domain.CallStateConnected
	call.ConnectedAt = time.Now()
	if err := s.calls.Update(ctx, call); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Infow("call accepted", "call_id", call.ID, "caller_id", callerID, "receiver_id", receiverID)

	s.deliver(ctx, push{to: callerID, msg: domain.Envelope{
		Type: domain.MsgCallAccepted,
		Payload: domain.CallAcceptedPayload{
			ReceiverID: receiverID,
			Timestamp:  time.Now().UnixMilli(),
		},
	}})

	return nil
}

func (s *callService) RejectCall(ctx context.Context, callerID, receiverID domain.UserID, reason string) error {
	if reason == "" {
		reason = defaultRejectReason
	}

	s.mu.Lock()
	call, err := s.calls.FindByPair(ctx, callerID, receiverID)
	if err != nil || call == nil || call.State != domain.CallStateRinging {
		// Stale reject, silently absorbed.
		s.mu.Unlock()
		return nil
	}

	s.finishLocked(ctx, call, domain.CallStateRejected)
	s.mu.Unlock()

	s.logger.Infow("call rejected", "call_id", call.ID, "caller_id", callerID, "reason", reason)

	s.deliver(ctx, push{to: callerID, msg: domain.Envelope{
		Type: domain.MsgCallRejected,
		Payload: domain.CallRejectedPayload{
			ReceiverID: receiverID,
			Reason:     reason,
			Timestamp:  time.Now().UnixMilli(),
		},
	}})

	return nil
}

func (s *callService) EndCall(ctx context.Context, userID, remoteUserID domain.UserID) error {
	s.mu.Lock()
	call, err := s.calls.FindByPair(ctx, userID, remoteUserID)
	if err != nil || call == nil {
		// Ending an unknown or already-ended call is a no-op.
		s.mu.Unlock()
		return nil
	}

	other := call.Other(userID)
	s.finishLocked(ctx, call, domain.CallStateEnded)
	s.mu.Unlock()

	s.logger.Infow("call ended", "call_id", call.ID, "ended_by", userID)

	s.deliver(ctx, push{to: other, msg: domain.Envelope{
		Type: domain.MsgCallEnded,
		Payload: domain.CallEndedPayload{
			UserID:    userID,
			Timestamp: time.Now().UnixMilli(),
		},
	}})

	return nil
}

func (s *callService) EndAllForUser(ctx context.Context, userID domain.UserID) error {
	s.mu.Lock()
	calls, err := s.calls.FindByUser(ctx, userID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	var pushes []push
	for _, call := range calls {
		other := call.Other(userID)
		s.finishLocked(ctx, call, domain.CallStateEnded)
		pushes = append(pushes, push{to: other, msg: domain.Envelope{
			Type: domain.MsgCallEnded,
			Payload: domain.CallEndedPayload{
				UserID:    userID,
				Timestamp: time.Now().UnixMilli(),
			},
		}})
	}
	s.mu.Unlock()

	if len(pushes) > 0 {
		s.logger.Infow("ended calls for disconnected user", "user_id", userID, "count", len(pushes))
		s.deliver(ctx, pushes...)
	}

	return nil
}

func (s *callService) ActiveCalls(ctx context.Context) ([]*domain.DirectCall, error) {
	return s.calls.ListActive(ctx)
}

func (s *callService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// timeoutCall fires when nobody answered within the ring timeout. The
// caller gets the same terminal notification a reject would produce.
func (s *callService) timeoutCall(ctx context.Context, callID domain.CallID) {
	s.mu.Lock()
	delete(s.timers, callID)

	call, err := s.calls.GetByID(ctx, callID)
	if err != nil || call == nil || call.State != domain.CallStateRinging {
		// The call resolved through another path before the timer fired.
		s.mu.Unlock()
		return
	}

	s.finishLocked(ctx, call, domain.CallStateTimedOut)
	s.mu.Unlock()

	s.logger.Infow("call timed out", "call_id", callID, "caller_id", call.CallerID)

	s.deliver(ctx, push{to: call.CallerID, msg: domain.Envelope{
		Type: domain.MsgCallRejected,
		Payload: domain.CallRejectedPayload{
			ReceiverID: call.ReceiverID,
			Reason:     "Call not answered",
			Timestamp:  time.Now().UnixMilli(),
		},
	}})
}

// finishLocked moves a call to a terminal state and drops it from the
// repository. Must be called with s.mu held.
func (s *callService) finishLocked(ctx context.Context, call *domain.DirectCall, state domain.CallState) {
	s.stopTimer(call.ID)
	call.State = state
	call.EndedAt = time.Now()

	if err := s.calls.Remove(ctx, call.ID); err != nil {
		s.logger.Warnw("failed to remove terminal call", "call_id", call.ID, "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCallOutcome(state, time.Since(call.InitiatedAt).Seconds())
	}
}

// stopTimer must be called with s.mu held.
func (s *callService) stopTimer(callID domain.CallID) {
	if timer, ok := s.timers[callID]; ok {
		timer.Stop()
		delete(s.timers, callID)
	}
}

func (s *callService) deliver(ctx context.Context, pushes ...push) {
	for _, p := range pushes {
		entry, err := s.registry.Lookup(ctx, p.to)
		if err != nil {
			s.logger.Debugw("dropping message for offline user", "user_id", p.to, "type", p.msg.Type)
			continue
		}
		if err := entry.Handle.Send(p.msg); err != nil {
			s.logger.Warnw("outbound push failed", "user_id", p.to, "type", p.msg.Type, "error", err)
		}
	}
}
