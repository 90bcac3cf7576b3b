package schedule

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	schedules map[string]*Schedule
}

// NewInMemoryRepository creates a new in-memory schedule repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{schedules: make(map[string]*Schedule)}
}

// Get retrieves a schedule by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sched, ok := r.schedules[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cpy := *sched
	return &cpy, nil
}

// List retrieves all schedules ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]*Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var scheds []*Schedule
	for _, sched := range r.schedules {
		cpy := *sched
		scheds = append(scheds, &cpy)
	}
	sort.Slice(scheds, func(i, j int) bool { return scheds[i].Name < scheds[j].Name })
	return scheds, nil
}

// Create creates a new schedule.
func (r *InMemoryRepository) Create(_ context.Context, sched *Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *sched
	r.schedules[sched.ID] = &cpy
	return nil
}

// Update updates an existing schedule.
func (r *InMemoryRepository) Update(_ context.Context, sched *Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[sched.ID]; !ok {
		return ErrScheduleNotFound
	}
	cpy := *sched
	r.schedules[sched.ID] = &cpy
	return nil
}

// Delete deletes a schedule by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(r.schedules, id)
	return nil
}

// SetEnabled flips the enabled flag.
func (r *InMemoryRepository) SetEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sched, ok := r.schedules[id]
	if !ok {
		return ErrScheduleNotFound
	}
	sched.Enabled = enabled
	sched.UpdatedAt = time.Now()
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
