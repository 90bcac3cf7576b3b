package alert

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{alerts: make(map[string]*Alert)}
}

// Get retrieves an alert by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	cpy := *a
	return &cpy, nil
}

// List retrieves a page of alerts, newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Alert
	for _, a := range r.alerts {
		if opts.UnresolvedOnly && a.Resolved {
			continue
		}
		if opts.IndicatorID != "" && a.IndicatorID != opts.IndicatorID {
			continue
		}
		cpy := *a
		items = append(items, &cpy)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &ListResult{Items: items[start:end], Page: page, TotalCount: total}, nil
}

// Create creates a new alert.
func (r *InMemoryRepository) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *a
	r.alerts[a.ID] = &cpy
	return nil
}

// MarkResolved persists the resolution fields.
func (r *InMemoryRepository) MarkResolved(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.alerts[a.ID]
	if !ok {
		return ErrAlertNotFound
	}
	if existing.Resolved {
		return ErrAlreadyResolved
	}
	existing.Resolved = true
	existing.ResolvedBy = a.ResolvedBy
	existing.ResolvedAt = a.ResolvedAt
	return nil
}

// CountUnresolved returns the number of open alerts.
func (r *InMemoryRepository) CountUnresolved(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.alerts {
		if !a.Resolved {
			n++
		}
	}
	return n, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
