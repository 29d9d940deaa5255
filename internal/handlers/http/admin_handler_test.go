package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"signalhub/internal/core/services"
	"signalhub/internal/infrastructure/monitoring"
	"signalhub/internal/infrastructure/repositories/memory"
	"signalhub/pkg/config"
	"signalhub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandle struct{}

func (stubHandle) Send(interface{}) error { return nil }

func newAdminRouter(t *testing.T, health *monitoring.HealthChecker) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	registry := memory.NewMemoryConnectionRegistry()
	presence := services.NewPresenceService(registry, nil, nil, log)
	calls := services.NewCallService(memory.NewMemoryCallRepository(), registry, time.Minute, nil, log)
	t.Cleanup(calls.Shutdown)
	rooms := services.NewRoomService(memory.NewMemoryRoomRepository(), registry, nil, log)

	require.NoError(t, presence.Connect(context.Background(), "alice", "Alice", stubHandle{}))

	cfg := config.DefaultConfig()
	handler := NewAdminHandler(presence, calls, rooms, cfg, health)

	router := gin.New()
	handler.SetupRoutes(router)
	return router, cfg
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestAdmin_Health(t *testing.T) {
	health := monitoring.NewHealthChecker(time.Second)
	router, _ := newAdminRouter(t, health)

	w := doGet(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var status monitoring.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
}

func TestAdmin_HealthFailingCheck(t *testing.T) {
	health := monitoring.NewHealthChecker(time.Second)
	health.AddCheck("redis", func(context.Context) error {
		return errors.New("connection refused")
	})
	router, _ := newAdminRouter(t, health)

	w := doGet(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_ListOnline(t *testing.T) {
	router, _ := newAdminRouter(t, monitoring.NewHealthChecker(time.Second))

	w := doGet(router, "/api/v1/online")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
		Users []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			ConnectedAt int64  `json:"connectedAt"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "alice", body.Users[0].ID)
	assert.Equal(t, "Alice", body.Users[0].DisplayName)
	assert.Greater(t, body.Users[0].ConnectedAt, int64(0))
}

func TestAdmin_ListCallsEmpty(t *testing.T) {
	router, _ := newAdminRouter(t, monitoring.NewHealthChecker(time.Second))

	w := doGet(router, "/api/v1/calls")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0,"calls":[]}`, w.Body.String())
}

func TestAdmin_ICEServers(t *testing.T) {
	router, cfg := newAdminRouter(t, monitoring.NewHealthChecker(time.Second))

	w := doGet(router, "/api/v1/ice-servers")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ICEServers, len(cfg.WebRTC.ICEServers))
	assert.Equal(t, cfg.WebRTC.ICEServers[0].URLs, body.ICEServers[0].URLs)
}
