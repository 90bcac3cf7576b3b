package collector

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	collectors map[string]*Collector
	items      map[string][]string
}

// NewInMemoryRepository creates a new in-memory collector repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		collectors: make(map[string]*Collector),
		items:      make(map[string][]string),
	}
}

// Get retrieves a collector by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col, ok := r.collectors[id]
	if !ok {
		return nil, ErrCollectorNotFound
	}
	cpy := *col
	return &cpy, nil
}

// List retrieves all collectors ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]*Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cols []*Collector
	for _, col := range r.collectors {
		cpy := *col
		cols = append(cols, &cpy)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols, nil
}

// Create creates a new collector.
func (r *InMemoryRepository) Create(_ context.Context, col *Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *col
	r.collectors[col.ID] = &cpy
	return nil
}

// Update updates an existing collector.
func (r *InMemoryRepository) Update(_ context.Context, col *Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collectors[col.ID]; !ok {
		return ErrCollectorNotFound
	}
	cpy := *col
	r.collectors[col.ID] = &cpy
	return nil
}

// Delete deletes a collector by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collectors[id]; !ok {
		return ErrCollectorNotFound
	}
	delete(r.collectors, id)
	delete(r.items, id)
	return nil
}

// ItemNames enumerates the item names registered for a collector.
func (r *InMemoryRepository) ItemNames(_ context.Context, collectorID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.items[collectorID]...)
	sort.Strings(names)
	return names, nil
}

// SetItemNames replaces the collector's item name set.
func (r *InMemoryRepository) SetItemNames(_ context.Context, collectorID string, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[collectorID] = append([]string(nil), names...)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
