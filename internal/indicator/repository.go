package indicator

import (
	"context"
	"time"
)

// ListOptions controls pagination for indicator listing.
type ListOptions struct {
	Page     int
	PageSize int
	// ActiveOnly restricts the listing to active indicators.
	ActiveOnly bool
}

// ListResult is a page of indicators with pagination metadata.
type ListResult struct {
	Items      []*Indicator
	Page       int
	TotalCount int
}

// Repository defines the interface for indicator persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Indicator, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Create(ctx context.Context, ind *Indicator) error
	Update(ctx context.Context, ind *Indicator) error
	Delete(ctx context.Context, id string) error

	// SetActive flips the soft-deactivation flag.
	SetActive(ctx context.Context, id string, active bool) error

	// ListDue returns active, not-running indicators whose schedule is
	// enabled, for due evaluation by the scheduler. limit bounds the batch.
	ListDue(ctx context.Context, limit int) ([]*Indicator, error)

	// ClaimForRun atomically marks the indicator as running. Returns
	// ErrAlreadyRunning if another worker holds it.
	ClaimForRun(ctx context.Context, id string) error

	// FinishRun records the run outcome and clears the running flag.
	// A terminal result and the running flag are mutually exclusive.
	FinishRun(ctx context.Context, id string, at time.Time, value *float64, result RunResult) error

	// ResetStaleRuns clears the running flag on indicators that have been
	// running longer than the threshold; returns the affected IDs.
	ResetStaleRuns(ctx context.Context, olderThan time.Duration) ([]string, error)

	// SetContacts replaces the indicator's notification contact set.
	SetContacts(ctx context.Context, id string, contactIDs []string) error

	// ContactIDs returns the notification contacts linked to the indicator.
	ContactIDs(ctx context.Context, id string) ([]string, error)
}
