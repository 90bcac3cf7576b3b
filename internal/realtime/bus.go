package realtime

import (
	"context"
	"sync"
)

// Bus fans events out from publishers (scheduler, worker) to subscribers
// (the hub, tests). Implementations: InMemoryBus for single-process
// deployments, RedisBus when api and worker run separately.
type Bus interface {
	// Publish delivers the event to all current subscribers.
	Publish(ctx context.Context, evt Event) error

	// Subscribe returns a channel of events and a cancel function.
	// Slow subscribers may have events dropped rather than blocking
	// publishers.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}

// InMemoryBus is a process-local Bus.
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewInMemoryBus creates an in-process event bus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[int]chan Event)}
}

// Publish delivers the event to all current subscribers, dropping it for
// subscribers whose buffer is full.
func (b *InMemoryBus) Publish(_ context.Context, evt Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a buffered subscriber channel.
func (b *InMemoryBus) Subscribe(_ context.Context) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 64)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel, nil
}

var _ Bus = (*InMemoryBus)(nil)
