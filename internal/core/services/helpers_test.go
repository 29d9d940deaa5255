package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"
	"signalhub/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLogger *zap.SugaredLogger = logger.NewNop()

// registerUser puts a fake connection into the registry and returns its
// handle for asserting on pushed messages.
func registerUser(t *testing.T, reg ports.ConnectionRegistry, id domain.UserID, name string) *fakeHandle {
	t.Helper()
	h := &fakeHandle{}
	_, err := reg.Register(context.Background(), &domain.ConnectionEntry{
		UserID:      id,
		DisplayName: name,
		Handle:      h,
		ConnectedAt: time.Now(),
	})
	require.NoError(t, err)
	return h
}

// fakeHandle records everything pushed to a connection.
type fakeHandle struct {
	mu     sync.Mutex
	sent   []domain.Envelope
	failed bool
}

func (h *fakeHandle) Send(v interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed {
		return errors.New("connection closed")
	}
	if env, ok := v.(domain.Envelope); ok {
		h.sent = append(h.sent, env)
	}
	return nil
}

func (h *fakeHandle) fail() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = true
}

func (h *fakeHandle) messages() []domain.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Envelope, len(h.sent))
	copy(out, h.sent)
	return out
}

func (h *fakeHandle) countByType(msgType string) int {
	n := 0
	for _, env := range h.messages() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

func (h *fakeHandle) lastOfType(msgType string) (domain.Envelope, bool) {
	msgs := h.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == msgType {
			return msgs[i], true
		}
	}
	return domain.Envelope{}, false
}
