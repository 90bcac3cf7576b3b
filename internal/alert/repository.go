package alert

import "context"

// ListOptions controls filtering and pagination for alert listing.
type ListOptions struct {
	Page     int
	PageSize int
	// UnresolvedOnly restricts the listing to open alerts.
	UnresolvedOnly bool
	// IndicatorID filters to a single indicator when set.
	IndicatorID string
}

// ListResult is a page of alerts with pagination metadata.
type ListResult struct {
	Items      []*Alert
	Page       int
	TotalCount int
}

// Repository defines the interface for alert persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Create(ctx context.Context, a *Alert) error

	// MarkResolved persists the resolution fields.
	MarkResolved(ctx context.Context, a *Alert) error

	// CountUnresolved returns the number of open alerts.
	CountUnresolved(ctx context.Context) (int, error)
}
