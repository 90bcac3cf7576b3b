package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus is a Bus backed by Redis pub/sub, used when the worker runs
// as a separate process from the API and its hub.
type RedisBus struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisBus creates a Redis-backed event bus on the given channel.
func NewRedisBus(client *redis.Client, channel string, logger zerolog.Logger) *RedisBus {
	if channel == "" {
		channel = "pulsewatch:events"
	}
	return &RedisBus{client: client, channel: channel, logger: logger}
}

// Publish serializes the event and publishes it on the Redis channel.
func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe subscribes to the Redis channel and decodes events.
// The returned cancel function closes the underlying subscription.
func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := b.client.Subscribe(ctx, b.channel)

	// Force the subscription to be established before returning.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warn().Err(err).Msg("dropping malformed realtime event")
				continue
			}
			select {
			case out <- evt:
			default:
				b.logger.Warn().Str("event", evt.Name).Msg("dropping realtime event, subscriber is slow")
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel, nil
}

var _ Bus = (*RedisBus)(nil)
