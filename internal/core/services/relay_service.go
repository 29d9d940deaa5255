package services

import (
	"context"
	"encoding/json"
	"fmt"

	"signalhub/internal/core/domain"
	"signalhub/internal/core/ports"

	"go.uber.org/zap"
)

type relayService struct {
	registry ports.ConnectionRegistry
	metrics  ports.MetricsSink
	logger   *zap.SugaredLogger
}

// NewRelayService builds the stateless signaling relay. The relay is a pure
// address-based forwarder: it never inspects SDP or ICE contents and keeps
// no state. A message for an offline target is dropped, real-time signaling
// has no value once the peer is gone.
func NewRelayService(registry ports.ConnectionRegistry, metrics ports.MetricsSink, logger *zap.SugaredLogger) ports.RelayService {
	return &relayService{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *relayService) Relay(ctx context.Context, kind domain.SignalKind, from, to domain.UserID, payload json.RawMessage) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown signal kind: %s", kind)
	}
	if to == "" {
		return fmt.Errorf("signal target is required")
	}

	entry, err := s.registry.Lookup(ctx, to)
	if err != nil {
		s.logger.Debugw("dropping signal for offline target", "kind", kind, "from", from, "to", to)
		if s.metrics != nil {
			s.metrics.RecordRelay(kind, false)
		}
		return nil
	}

	msg := domain.Envelope{
		Type: string(kind),
		Payload: domain.SignalForwardPayload{
			From:    from,
			Payload: payload,
		},
	}
	if err := entry.Handle.Send(msg); err != nil {
		s.logger.Warnw("signal forward failed", "kind", kind, "from", from, "to", to, "error", err)
		if s.metrics != nil {
			s.metrics.RecordRelay(kind, false)
		}
		return nil
	}

	s.logger.Debugw("routed signal", "kind", kind, "from", from, "to", to, "payload_bytes", len(payload))
	if s.metrics != nil {
		s.metrics.RecordRelay(kind, true)
	}
	return nil
}
