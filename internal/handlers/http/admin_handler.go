package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	webrtc "github.com/pion/webrtc/v3"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/internal/infrastructure/monitoring"
	"signalhub/pkg/config"
)

// AdminHandler exposes a read-only view of the coordinator state plus the
// ICE server configuration clients need to build their peer connections.
type AdminHandler struct {
	presence ports.PresenceService
	calls    ports.CallService
	rooms    ports.RoomService
	cfg      *config.Config
	health   *monitoring.HealthChecker
}

func NewAdminHandler(
	presence ports.PresenceService,
	calls ports.CallService,
	rooms ports.RoomService,
	cfg *config.Config,
	health *monitoring.HealthChecker,
) *AdminHandler {
	return &AdminHandler{
		presence: presence,
		calls:    calls,
		rooms:    rooms,
		cfg:      cfg,
		health:   health,
	}
}

func (h *AdminHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/online", h.ListOnline)
		api.GET("/calls", h.ListCalls)
		api.GET("/rooms", h.ListRooms)
		api.GET("/ice-servers", h.ICEServers)
	}
}

func (h *AdminHandler) Health(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())

	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *AdminHandler) ListOnline(c *gin.Context) {
	entries, err := h.presence.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type onlineUser struct {
		ID          domain.UserID `json:"id"`
		DisplayName string        `json:"displayName"`
		ConnectedAt int64         `json:"connectedAt"`
	}

	users := make([]onlineUser, 0, len(entries))
	for _, entry := range entries {
		users = append(users, onlineUser{
			ID:          entry.UserID,
			DisplayName: entry.DisplayName,
			ConnectedAt: entry.ConnectedAt.UnixMilli(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(users),
		"users": users,
	})
}

func (h *AdminHandler) ListCalls(c *gin.Context) {
	calls, err := h.calls.ActiveCalls(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(calls),
		"calls": calls,
	})
}

func (h *AdminHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ActiveRooms(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(rooms),
		"rooms": rooms,
	})
}

// ICEServers returns the STUN/TURN configuration in the shape pion (and
// browser RTCPeerConnection) clients consume directly.
func (h *AdminHandler) ICEServers(c *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, len(h.cfg.WebRTC.ICEServers))
	for _, s := range h.cfg.WebRTC.ICEServers {
		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}

	c.JSON(http.StatusOK, gin.H{
		"iceServers": servers,
	})
}
