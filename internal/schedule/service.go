package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides schedule business logic.
type Service struct {
	repo Repository
}

// NewService creates a new schedule service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves a schedule by ID.
func (s *Service) Get(ctx context.Context, id string) (*Schedule, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves all schedules.
func (s *Service) List(ctx context.Context) ([]*Schedule, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new schedule.
func (s *Service) Create(ctx context.Context, sched *Schedule) (*Schedule, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	sched.ID = "sch_" + uuid.New().String()[:22]
	sched.Enabled = true
	sched.CreatedAt = now
	sched.UpdatedAt = now

	if err := s.repo.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("creating schedule: %w", err)
	}
	return sched, nil
}

// Update validates and persists changes to a schedule.
func (s *Service) Update(ctx context.Context, sched *Schedule) (*Schedule, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, sched.ID)
	if err != nil {
		return nil, err
	}
	sched.CreatedAt = existing.CreatedAt
	sched.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// Delete deletes a schedule.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Enable turns the schedule on; attached indicators become schedulable.
func (s *Service) Enable(ctx context.Context, id string) error {
	return s.repo.SetEnabled(ctx, id, true)
}

// Disable turns the schedule off for all attached indicators.
func (s *Service) Disable(ctx context.Context, id string) error {
	return s.repo.SetEnabled(ctx, id, false)
}
