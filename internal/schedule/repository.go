package schedule

import "context"

// Repository defines the interface for schedule persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Schedule, error)
	List(ctx context.Context) ([]*Schedule, error)
	Create(ctx context.Context, sched *Schedule) error
	Update(ctx context.Context, sched *Schedule) error
	Delete(ctx context.Context, id string) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
}
