package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides collector business logic and query execution.
type Service struct {
	repo   Repository
	source Source
}

// NewService creates a new collector service. source may be nil for
// API-only deployments that never execute collectors.
func NewService(repo Repository, source Source) *Service {
	return &Service{repo: repo, source: source}
}

// Get retrieves a collector by ID.
func (s *Service) Get(ctx context.Context, id string) (*Collector, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves all collectors.
func (s *Service) List(ctx context.Context) ([]*Collector, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new collector.
func (s *Service) Create(ctx context.Context, col *Collector) (*Collector, error) {
	if err := col.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	col.ID = "col_" + uuid.New().String()[:22]
	col.CreatedAt = now
	col.UpdatedAt = now

	if err := s.repo.Create(ctx, col); err != nil {
		return nil, fmt.Errorf("creating collector: %w", err)
	}
	return col, nil
}

// Update validates and persists changes to a collector.
func (s *Service) Update(ctx context.Context, col *Collector) (*Collector, error) {
	if err := col.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, col.ID)
	if err != nil {
		return nil, err
	}
	col.CreatedAt = existing.CreatedAt
	col.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, col); err != nil {
		return nil, err
	}
	return col, nil
}

// Delete deletes a collector.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ItemNames enumerates the item names registered for a collector.
func (s *Service) ItemNames(ctx context.Context, collectorID string) ([]string, error) {
	if _, err := s.repo.Get(ctx, collectorID); err != nil {
		return nil, err
	}
	return s.repo.ItemNames(ctx, collectorID)
}

// SetItemNames replaces the collector's item name set.
func (s *Service) SetItemNames(ctx context.Context, collectorID string, names []string) error {
	if _, err := s.repo.Get(ctx, collectorID); err != nil {
		return err
	}
	return s.repo.SetItemNames(ctx, collectorID, names)
}

// Collect evaluates the collector query for the given item name.
func (s *Service) Collect(ctx context.Context, collectorID, itemName string) (map[string]float64, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	col, err := s.repo.Get(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	return s.source.Collect(ctx, col, itemName)
}
