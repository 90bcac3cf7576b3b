package contact

import "context"

// Repository defines the interface for contact persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Contact, error)
	GetMany(ctx context.Context, ids []string) ([]*Contact, error)
	List(ctx context.Context) ([]*Contact, error)
	Create(ctx context.Context, c *Contact) error
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id string) error
}
