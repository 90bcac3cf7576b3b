package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/realtime"
)

// StatusFeed mirrors the worker process's status in the api process by
// consuming WorkerStatusUpdate events from the bus. GET /worker/status
// serves from it when the worker runs out of process.
type StatusFeed struct {
	mu        sync.RWMutex
	latest    Status
	updatedAt time.Time
	logger    zerolog.Logger
}

// NewStatusFeed creates an empty feed.
func NewStatusFeed(logger zerolog.Logger) *StatusFeed {
	return &StatusFeed{logger: logger.With().Str("component", "status_feed").Logger()}
}

// Run consumes status events until ctx is cancelled.
func (f *StatusFeed) Run(ctx context.Context, bus realtime.Bus) error {
	consume, err := f.Attach(ctx, bus)
	if err != nil {
		return err
	}
	return consume()
}

// Attach subscribes to the bus and returns the blocking consume loop.
// The subscription is live once Attach returns, so events published
// afterwards are never missed.
func (f *StatusFeed) Attach(ctx context.Context, bus realtime.Bus) (func() error, error) {
	events, cancel, err := bus.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return func() error {
		defer cancel()
		return f.consume(ctx, events)
	}, nil
}

func (f *StatusFeed) consume(ctx context.Context, events <-chan realtime.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Name != realtime.EventWorkerStatusUpdate {
				continue
			}
			var status Status
			if err := json.Unmarshal(ev.Data, &status); err != nil {
				f.logger.Warn().Err(err).Msg("malformed worker status event")
				continue
			}
			f.mu.Lock()
			f.latest = status
			f.updatedAt = ev.Timestamp
			f.mu.Unlock()
		}
	}
}

// Latest returns the most recent status and when it was published.
// ok is false before the first event arrives.
func (f *StatusFeed) Latest() (status Status, at time.Time, ok bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.updatedAt, !f.updatedAt.IsZero()
}
