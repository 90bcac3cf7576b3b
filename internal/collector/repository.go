package collector

import "context"

// Repository defines the interface for collector persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Collector, error)
	List(ctx context.Context) ([]*Collector, error)
	Create(ctx context.Context, col *Collector) error
	Update(ctx context.Context, col *Collector) error
	Delete(ctx context.Context, id string) error

	// ItemNames enumerates the item names registered for a collector.
	ItemNames(ctx context.Context, collectorID string) ([]string, error)

	// SetItemNames replaces the collector's item name set.
	SetItemNames(ctx context.Context, collectorID string, names []string) error
}
