package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"signalhub/internal/core/domain"
	"signalhub/pkg/circuitbreaker"
	"signalhub/pkg/retry"
)

const presenceChannel = "signalhub:presence"

// PresenceEvent is a presence transition fanned out to sibling instances.
type PresenceEvent struct {
	InstanceID string        `json:"instance_id"`
	UserID     domain.UserID `json:"user_id"`
	IsOnline   bool          `json:"is_online"`
	Timestamp  time.Time     `json:"timestamp"`
}

// PresenceBus publishes presence transitions over Redis pub/sub so that
// sibling instances can keep their views consistent. Publishing is guarded
// by a circuit breaker; transient failures are retried.
type PresenceBus struct {
	client     *redis.Client
	instanceID string
	logger     *zap.SugaredLogger
	breaker    *circuitbreaker.CircuitBreaker
	retryCfg   retry.Config
	pubsub     *redis.PubSub
}

func NewPresenceBus(client *redis.Client, instanceID string, logger *zap.SugaredLogger) *PresenceBus {
	return &PresenceBus{
		client:     client,
		instanceID: instanceID,
		logger:     logger,
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig()),
		retryCfg: retry.Config{
			Enabled:      true,
			MaxAttempts:  2,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     500 * time.Millisecond,
			Multiplier:   2.0,
			Jitter:       true,
		},
	}
}

// PublishPresence implements ports.PresencePublisher.
func (pb *PresenceBus) PublishPresence(ctx context.Context, userID domain.UserID, isOnline bool) error {
	event := PresenceEvent{
		InstanceID: pb.instanceID,
		UserID:     userID,
		IsOnline:   isOnline,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	err = pb.breaker.Execute(ctx, func() error {
		return retry.Retry(ctx, pb.retryCfg, func() error {
			return pb.client.Publish(ctx, presenceChannel, data).Err()
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish presence event: %w", err)
	}

	pb.logger.Debugw("published presence event",
		"user_id", userID,
		"is_online", isOnline,
	)

	return nil
}

// Subscribe consumes presence events from sibling instances and invokes
// handler for each. Events published by this instance are skipped. Blocks
// until ctx is cancelled.
func (pb *PresenceBus) Subscribe(ctx context.Context, handler func(PresenceEvent)) error {
	if pb.pubsub != nil {
		return fmt.Errorf("already subscribed")
	}

	pb.pubsub = pb.client.Subscribe(ctx, presenceChannel)
	defer pb.pubsub.Close()

	ch := pb.pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event PresenceEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				pb.logger.Warnw("failed to unmarshal presence event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			if event.InstanceID == pb.instanceID {
				continue
			}

			handler(event)
		}
	}
}

// Healthy reports whether the underlying Redis connection responds to ping.
func (pb *PresenceBus) Healthy(ctx context.Context) error {
	return pb.client.Ping(ctx).Err()
}

func (pb *PresenceBus) Close() error {
	if pb.pubsub != nil {
		return pb.pubsub.Close()
	}
	return nil
}
