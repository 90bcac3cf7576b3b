package alert

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Service provides alert business logic.
type Service struct {
	repo Repository
}

// NewService creates a new alert service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*Alert, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves a page of alerts.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// CountUnresolved returns the number of open alerts.
func (s *Service) CountUnresolved(ctx context.Context) (int, error) {
	return s.repo.CountUnresolved(ctx)
}

// Raise creates an alert for a threshold breach. Severity escalates to
// critical when the value deviates from the threshold by 50% or more.
func (s *Service) Raise(ctx context.Context, indicatorID, indicatorName, field string, value, threshold float64) (*Alert, error) {
	a := &Alert{
		ID:             "alr_" + uuid.New().String()[:22],
		IndicatorID:    indicatorID,
		IndicatorName:  indicatorName,
		Severity:       severityFor(value, threshold),
		Message:        fmt.Sprintf("%s: %s is %g (threshold %g)", indicatorName, field, value, threshold),
		TriggeredValue: value,
		ThresholdField: field,
		ThresholdValue: threshold,
		CreatedAt:      time.Now(),
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}
	return a, nil
}

// Resolve marks the alert resolved by the given user.
func (s *Service) Resolve(ctx context.Context, id, resolvedBy string) (*Alert, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := a.Resolve(resolvedBy, time.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.MarkResolved(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// severityFor classifies the breach by relative deviation from the threshold.
func severityFor(value, threshold float64) Severity {
	if threshold == 0 {
		return SeverityCritical
	}
	deviation := math.Abs(value-threshold) / math.Abs(threshold)
	if deviation >= 0.5 {
		return SeverityCritical
	}
	return SeverityWarning
}
