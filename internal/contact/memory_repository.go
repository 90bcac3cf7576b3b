package contact

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	contacts map[string]*Contact
}

// NewInMemoryRepository creates a new in-memory contact repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{contacts: make(map[string]*Contact)}
}

// Get retrieves a contact by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, ErrContactNotFound
	}
	cpy := *c
	return &cpy, nil
}

// GetMany retrieves contacts by their IDs. Missing IDs are skipped.
func (r *InMemoryRepository) GetMany(_ context.Context, ids []string) ([]*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var contacts []*Contact
	for _, id := range ids {
		if c, ok := r.contacts[id]; ok {
			cpy := *c
			contacts = append(contacts, &cpy)
		}
	}
	return contacts, nil
}

// List retrieves all contacts ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]*Contact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var contacts []*Contact
	for _, c := range r.contacts {
		cpy := *c
		contacts = append(contacts, &cpy)
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Name < contacts[j].Name })
	return contacts, nil
}

// Create creates a new contact.
func (r *InMemoryRepository) Create(_ context.Context, c *Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *c
	r.contacts[c.ID] = &cpy
	return nil
}

// Update updates an existing contact.
func (r *InMemoryRepository) Update(_ context.Context, c *Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[c.ID]; !ok {
		return ErrContactNotFound
	}
	cpy := *c
	r.contacts[c.ID] = &cpy
	return nil
}

// Delete deletes a contact by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contacts[id]; !ok {
		return ErrContactNotFound
	}
	delete(r.contacts, id)
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
