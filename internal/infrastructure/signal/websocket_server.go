package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/internal/infrastructure/monitoring"
	"signalhub/pkg/utils"
	"signalhub/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketServer struct {
	verifier ports.TokenVerifier
	presence ports.PresenceService
	calls    ports.CallService
	rooms    ports.RoomService
	relay    ports.RelayService
	lan      ports.LanService

	collector *monitoring.Collector

	pingInterval   time.Duration
	pongTimeout    time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	msgRate        rate.Limit
	msgBurst       int
	maxMessageSize int64

	logger *zap.SugaredLogger
}

// Message is the inbound wire frame. The payload stays raw until the
// handler for its type decodes it.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type InitiateCallPayload struct {
	CallerID   domain.UserID `json:"callerId"`
	CallerName string        `json:"callerName"`
	ReceiverID domain.UserID `json:"receiverId"`
	IsVideo    bool          `json:"isVideo"`
	Timestamp  int64         `json:"timestamp"`
}

type AcceptCallPayload struct {
	CallerID   domain.UserID `json:"callerId"`
	ReceiverID domain.UserID `json:"receiverId"`
	Timestamp  int64         `json:"timestamp"`
}

type RejectCallPayload struct {
	CallerID   domain.UserID `json:"callerId"`
	ReceiverID domain.UserID `json:"receiverId"`
	Reason     string        `json:"reason"`
}

type EndCallPayload struct {
	UserID       domain.UserID `json:"userId"`
	RemoteUserID domain.UserID `json:"remoteUserId"`
}

// signalTarget extracts only the addressing fields of a relayed payload;
// the payload itself is forwarded untouched.
type signalTarget struct {
	Target domain.UserID `json:"target"`
	To     domain.UserID `json:"to"`
}

type GroupCallPayload struct {
	GroupID  domain.GroupID `json:"groupId"`
	UserID   domain.UserID  `json:"userId"`
	UserName string         `json:"userName"`
}

type InviteToGroupCallPayload struct {
	GroupID    domain.GroupID `json:"groupId"`
	CallerID   domain.UserID  `json:"callerId"`
	CallerName string         `json:"callerName"`
	GroupName  string         `json:"groupName"`
	ReceiverID domain.UserID  `json:"receiverId"`
}

type LanConnectionInfoPayload struct {
	LanIPAddresses []string `json:"lanIpAddresses"`
}

type Options struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	MaxMessageSize    int64
}

func NewWebSocketServer(
	verifier ports.TokenVerifier,
	presence ports.PresenceService,
	calls ports.CallService,
	rooms ports.RoomService,
	relay ports.RelayService,
	lan ports.LanService,
	collector *monitoring.Collector,
	opts Options,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	return &WebSocketServer{
		verifier:       verifier,
		presence:       presence,
		calls:          calls,
		rooms:          rooms,
		relay:          relay,
		lan:            lan,
		collector:      collector,
		pingInterval:   opts.PingInterval,
		pongTimeout:    opts.PongTimeout,
		readTimeout:    opts.ReadTimeout,
		writeTimeout:   opts.WriteTimeout,
		msgRate:        rate.Limit(opts.MessagesPerSecond),
		msgBurst:       opts.MessageBurst,
		maxMessageSize: opts.MaxMessageSize,
		logger:         logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.logger.Warnw("websocket auth failed", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	if s.maxMessageSize > 0 {
		conn.SetReadLimit(s.maxMessageSize)
	}

	userID := identity.UserID
	displayName := utils.TruncateString(utils.SanitizeString(identity.DisplayName), 64)
	handle := newWSConnection(conn, s.writeTimeout)

	// Close the transport of a superseded session before registering the
	// new one; the registry itself only overwrites.
	s.closeExisting(r.Context(), userID)

	if err := s.presence.Connect(r.Context(), userID, displayName, handle); err != nil {
		s.logger.Errorw("failed to register connection", "user_id", userID, "error", err)
		return
	}

	s.logger.Infow("user connected via WebSocket", "user_id", userID)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan Message, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			messageChan <- msg
		}
	}()

	var limiter *rate.Limiter
	if s.msgRate > 0 {
		limiter = rate.NewLimiter(s.msgRate, s.msgBurst)
	}

	for {
		select {
		case msg := <-messageChan:
			if limiter != nil && !limiter.Allow() {
				s.logger.Warnw("message rate limit exceeded", "user_id", userID, "type", msg.Type)
				s.sendError(handle, "rate limit exceeded")
				continue
			}
			if s.collector != nil {
				s.collector.RecordMessage(msg.Type)
			}
			if err := s.handleMessage(context.Background(), userID, handle, msg); err != nil {
				s.logger.Infow("error handling message", "user_id", userID, "type", msg.Type, "error", err)
				s.sendError(handle, errorMessage(err))
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "user_id", userID, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading message", "user_id", userID, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	// A superseded connection must not tear down its successor's presence.
	if !s.ownsRegistration(context.Background(), userID, handle) {
		s.logger.Infow("superseded connection closed", "user_id", userID)
		return
	}
	if err := s.presence.Disconnect(context.Background(), userID); err != nil {
		s.logger.Warnw("disconnect cleanup failed", "user_id", userID, "error", err)
	}
}

func (s *WebSocketServer) authenticate(r *http.Request) (*ports.Identity, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		return nil, fmt.Errorf("missing token")
	}
	return s.verifier.Verify(token)
}

func (s *WebSocketServer) closeExisting(ctx context.Context, userID domain.UserID) {
	online, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		return
	}
	for _, entry := range online {
		if entry.UserID != userID {
			continue
		}
		if old, ok := entry.Handle.(*wsConnection); ok {
			s.logger.Infow("closing old connection for reconnecting user", "user_id", userID)
			old.Close()
		}
		return
	}
}

func (s *WebSocketServer) ownsRegistration(ctx context.Context, userID domain.UserID, handle *wsConnection) bool {
	online, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		return true
	}
	for _, entry := range online {
		if entry.UserID == userID {
			return entry.Handle == domain.ConnectionHandle(handle)
		}
	}
	// Already unregistered; Disconnect stays a no-op either way.
	return true
}

func (s *WebSocketServer) handleMessage(ctx context.Context, userID domain.UserID, handle *wsConnection, msg Message) error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}

	switch msg.Type {
	case "initiateCall":
		return s.handleInitiateCall(ctx, userID, msg)
	case "acceptCall":
		return s.handleAcceptCall(ctx, userID, msg)
	case "rejectCall":
		return s.handleRejectCall(ctx, userID, msg)
	case "endCall":
		return s.handleEndCall(ctx, userID, msg)
	case "offer", "answer", "ice-candidate":
		return s.handleSignal(ctx, userID, msg)
	case "startGroupCall", "joinGroupCall", "leaveGroupCall", "endGroupCall":
		return s.handleGroupCall(ctx, userID, msg)
	case "inviteToGroupCall":
		return s.handleInvite(ctx, userID, msg)
	case "lan-connection-info":
		return s.handleLanInfo(ctx, userID, msg)
	case "scan-lan":
		return s.handleLanScan(ctx, userID, handle)
	case "getOnlineUsers":
		return s.handleGetOnlineUsers(ctx, handle)
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (s *WebSocketServer) handleInitiateCall(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload InitiateCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid initiateCall payload: %w", err)
	}
	if err := validation.ValidateUserID(string(payload.ReceiverID)); err != nil {
		return fmt.Errorf("receiverId: %w", err)
	}
	// The authenticated identity always wins over payload claims.
	if payload.CallerID != "" && payload.CallerID != userID {
		return fmt.Errorf("callerId mismatch: expected %s, got %s", userID, payload.CallerID)
	}
	return s.calls.InitiateCall(ctx, userID, payload.CallerName, payload.ReceiverID, payload.IsVideo)
}

func (s *WebSocketServer) handleAcceptCall(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload AcceptCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid acceptCall payload: %w", err)
	}
	if payload.CallerID == "" {
		return fmt.Errorf("callerId is required")
	}
	// Only the callee may accept.
	if payload.ReceiverID != "" && payload.ReceiverID != userID {
		return fmt.Errorf("receiverId mismatch: expected %s, got %s", userID, payload.ReceiverID)
	}
	return s.calls.AcceptCall(ctx, payload.CallerID, userID)
}

func (s *WebSocketServer) handleRejectCall(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload RejectCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid rejectCall payload: %w", err)
	}
	if payload.CallerID == "" {
		return fmt.Errorf("callerId is required")
	}
	if payload.ReceiverID != "" && payload.ReceiverID != userID {
		return fmt.Errorf("receiverId mismatch: expected %s, got %s", userID, payload.ReceiverID)
	}
	return s.calls.RejectCall(ctx, payload.CallerID, userID, payload.Reason)
}

func (s *WebSocketServer) handleEndCall(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload EndCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid endCall payload: %w", err)
	}
	if payload.RemoteUserID == "" {
		return fmt.Errorf("remoteUserId is required")
	}
	return s.calls.EndCall(ctx, userID, payload.RemoteUserID)
}

func (s *WebSocketServer) handleSignal(ctx context.Context, userID domain.UserID, msg Message) error {
	var target signalTarget
	if err := json.Unmarshal(msg.Payload, &target); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	to := target.Target
	if to == "" {
		to = target.To
	}
	return s.relay.Relay(ctx, domain.SignalKind(msg.Type), userID, to, msg.Payload)
}

func (s *WebSocketServer) handleGroupCall(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload GroupCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	if err := validation.ValidateGroupID(string(payload.GroupID)); err != nil {
		return fmt.Errorf("groupId: %w", err)
	}

	switch msg.Type {
	case "startGroupCall":
		return s.rooms.StartGroupCall(ctx, payload.GroupID, userID, payload.UserName)
	case "joinGroupCall":
		return s.rooms.JoinGroupCall(ctx, payload.GroupID, userID, payload.UserName)
	case "leaveGroupCall":
		return s.rooms.LeaveGroupCall(ctx, payload.GroupID, userID)
	default:
		return s.rooms.EndGroupCall(ctx, payload.GroupID, userID)
	}
}

func (s *WebSocketServer) handleInvite(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload InviteToGroupCallPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid inviteToGroupCall payload: %w", err)
	}
	if payload.GroupID == "" || payload.ReceiverID == "" {
		return fmt.Errorf("groupId and receiverId are required")
	}
	return s.rooms.InviteToGroupCall(ctx, payload.GroupID, userID, payload.CallerName, payload.GroupName, payload.ReceiverID)
}

func (s *WebSocketServer) handleLanInfo(ctx context.Context, userID domain.UserID, msg Message) error {
	var payload LanConnectionInfoPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid lan-connection-info payload: %w", err)
	}

	displayName := string(userID)
	if online, err := s.presence.OnlineUsers(ctx); err == nil {
		for _, entry := range online {
			if entry.UserID == userID {
				displayName = entry.DisplayName
				break
			}
		}
	}
	return s.lan.ReportAddresses(ctx, userID, displayName, payload.LanIPAddresses)
}

func (s *WebSocketServer) handleLanScan(ctx context.Context, userID domain.UserID, handle *wsConnection) error {
	// Scanning against the requester's own reported record; a scan before
	// any report matches nothing.
	peers, err := s.lan.ScanForPeers(ctx, userID, nil)
	if err != nil {
		peers = []domain.LanPeer{}
	}
	return handle.Send(domain.Envelope{
		Type:    domain.MsgLanUsers,
		Payload: domain.LanUsersPayload{Users: peers},
	})
}

func (s *WebSocketServer) handleGetOnlineUsers(ctx context.Context, handle *wsConnection) error {
	online, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		return err
	}
	users := make([]domain.UserID, 0, len(online))
	for _, entry := range online {
		users = append(users, entry.UserID)
	}
	return handle.Send(domain.Envelope{
		Type:    domain.MsgOnlineUsers,
		Payload: domain.OnlineUsersPayload{Users: users},
	})
}

func (s *WebSocketServer) sendError(handle *wsConnection, message string) {
	handle.Send(domain.Envelope{
		Type:    domain.MsgCallError,
		Payload: domain.CallErrorPayload{Message: message},
	})
}

// errorMessage maps core errors to the short codes clients display.
func errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case err == domain.ErrUserOffline:
		return "offline"
	case err == domain.ErrPairBusy:
		return "busy"
	case err == domain.ErrSelfCall:
		return "cannot call yourself"
	case err == domain.ErrCallNotFound:
		return "call not found"
	default:
		return err.Error()
	}
}
