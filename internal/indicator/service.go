package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides indicator business logic.
type Service struct {
	repo Repository
}

// NewService creates a new indicator service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves an indicator by ID.
func (s *Service) Get(ctx context.Context, id string) (*Indicator, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves a page of indicators.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// ListDue retrieves active indicators whose schedule makes them due to run.
func (s *Service) ListDue(ctx context.Context, limit int) ([]*Indicator, error) {
	return s.repo.ListDue(ctx, limit)
}

// Create validates and persists a new indicator.
func (s *Service) Create(ctx context.Context, ind *Indicator) (*Indicator, error) {
	if err := ind.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	ind.ID = "ind_" + uuid.New().String()[:22]
	ind.Active = true
	ind.IsRunning = false
	ind.LastRun = LastRun{}
	ind.CreatedAt = now
	ind.UpdatedAt = now

	if err := s.repo.Create(ctx, ind); err != nil {
		return nil, fmt.Errorf("creating indicator: %w", err)
	}
	return ind, nil
}

// Update validates and persists changes to an indicator's definition.
// Run state (is_running, last run) is owned by the worker and not touched here.
func (s *Service) Update(ctx context.Context, ind *Indicator) (*Indicator, error) {
	if err := ind.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, ind.ID)
	if err != nil {
		return nil, err
	}

	ind.CreatedAt = existing.CreatedAt
	ind.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, ind); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ind.ID)
}

// Deactivate soft-deletes an indicator. The scheduler skips inactive
// indicators; history and alerts are retained.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated indicator.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, true)
}

// Claim atomically marks the indicator running for a manual execution
// and returns it. Returns ErrAlreadyRunning when a worker holds it and
// ErrIndicatorInactive when the indicator is deactivated.
func (s *Service) Claim(ctx context.Context, id string) (*Indicator, error) {
	ind, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ClaimForRun(ctx, id); err != nil {
		return nil, err
	}
	ind.IsRunning = true
	return ind, nil
}

// Delete hard-deletes an indicator. Admin cleanup only.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SetContacts replaces the indicator's notification contact set.
func (s *Service) SetContacts(ctx context.Context, id string, contactIDs []string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetContacts(ctx, id, contactIDs)
}

// Contacts returns the notification contacts linked to the indicator.
func (s *Service) Contacts(ctx context.Context, id string) ([]string, error) {
	return s.repo.ContactIDs(ctx, id)
}
