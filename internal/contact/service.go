package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides contact business logic.
type Service struct {
	repo Repository
}

// NewService creates a new contact service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get retrieves a contact by ID.
func (s *Service) Get(ctx context.Context, id string) (*Contact, error) {
	return s.repo.Get(ctx, id)
}

// GetMany retrieves contacts by their IDs.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]*Contact, error) {
	return s.repo.GetMany(ctx, ids)
}

// List retrieves all contacts.
func (s *Service) List(ctx context.Context) ([]*Contact, error) {
	return s.repo.List(ctx)
}

// Create validates and persists a new contact.
func (s *Service) Create(ctx context.Context, c *Contact) (*Contact, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	c.ID = "cnt_" + uuid.New().String()[:22]
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return c, nil
}

// Update validates and persists changes to a contact.
func (s *Service) Update(ctx context.Context, c *Contact) (*Contact, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete deletes a contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
