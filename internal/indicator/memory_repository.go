package indicator

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	indicators map[string]*Indicator
	contacts   map[string][]string

	// scheduleEnabled mirrors the schedules table for ListDue filtering.
	scheduleEnabled map[string]bool
}

// NewInMemoryRepository creates a new in-memory indicator repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		indicators:      make(map[string]*Indicator),
		contacts:        make(map[string][]string),
		scheduleEnabled: make(map[string]bool),
	}
}

// SetScheduleEnabled records schedule state for ListDue filtering in tests.
func (r *InMemoryRepository) SetScheduleEnabled(scheduleID string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduleEnabled[scheduleID] = enabled
}

// Get retrieves an indicator by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ind, ok := r.indicators[id]
	if !ok {
		return nil, ErrIndicatorNotFound
	}
	cpy := *ind
	return &cpy, nil
}

// List retrieves a page of indicators ordered by creation time.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Indicator
	for _, ind := range r.indicators {
		if opts.ActiveOnly && !ind.Active {
			continue
		}
		cpy := *ind
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

// Create creates a new indicator.
func (r *InMemoryRepository) Create(_ context.Context, ind *Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *ind
	r.indicators[ind.ID] = &cpy
	return nil
}

// Update updates an existing indicator's definition.
func (r *InMemoryRepository) Update(_ context.Context, ind *Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.indicators[ind.ID]
	if !ok {
		return ErrIndicatorNotFound
	}
	cpy := *ind
	cpy.IsRunning = existing.IsRunning
	cpy.LastRun = existing.LastRun
	r.indicators[ind.ID] = &cpy
	return nil
}

// Delete hard-deletes an indicator.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.indicators[id]; !ok {
		return ErrIndicatorNotFound
	}
	delete(r.indicators, id)
	delete(r.contacts, id)
	return nil
}

// SetActive flips the soft-deactivation flag.
func (r *InMemoryRepository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind, ok := r.indicators[id]
	if !ok {
		return ErrIndicatorNotFound
	}
	ind.Active = active
	ind.UpdatedAt = time.Now()
	return nil
}

// ListDue returns active, not-running indicators with an enabled schedule.
func (r *InMemoryRepository) ListDue(_ context.Context, limit int) ([]*Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var items []*Indicator
	for _, ind := range r.indicators {
		if !ind.Active || ind.IsRunning {
			continue
		}
		if enabled, ok := r.scheduleEnabled[ind.ScheduleID]; ok && !enabled {
			continue
		}
		cpy := *ind
		items = append(items, &cpy)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// ClaimForRun atomically marks the indicator as running.
func (r *InMemoryRepository) ClaimForRun(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind, ok := r.indicators[id]
	if !ok {
		return ErrIndicatorNotFound
	}
	if !ind.Active {
		return ErrIndicatorInactive
	}
	if ind.IsRunning {
		return ErrAlreadyRunning
	}
	ind.IsRunning = true
	ind.UpdatedAt = time.Now()
	return nil
}

// FinishRun records the run outcome and clears the running flag.
func (r *InMemoryRepository) FinishRun(_ context.Context, id string, at time.Time, value *float64, result RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ind, ok := r.indicators[id]
	if !ok {
		return ErrIndicatorNotFound
	}
	ind.IsRunning = false
	ind.LastRun = LastRun{At: &at, Value: value, Result: result}
	ind.UpdatedAt = time.Now()
	return nil
}

// ResetStaleRuns clears the running flag on indicators stuck past the threshold.
func (r *InMemoryRepository) ResetStaleRuns(_ context.Context, olderThan time.Duration) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var ids []string
	for id, ind := range r.indicators {
		if ind.IsRunning && ind.UpdatedAt.Before(cutoff) {
			ind.IsRunning = false
			ind.LastRun.Result = RunResultError
			ind.UpdatedAt = time.Now()
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SetContacts replaces the indicator's notification contact set.
func (r *InMemoryRepository) SetContacts(_ context.Context, id string, contactIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contacts[id] = append([]string(nil), contactIDs...)
	return nil
}

// ContactIDs returns the notification contacts linked to the indicator.
func (r *InMemoryRepository) ContactIDs(_ context.Context, id string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.contacts[id]...), nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
