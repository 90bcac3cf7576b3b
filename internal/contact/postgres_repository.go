package contact

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL contact repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a contact by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, created_at, updated_at
		 FROM contacts WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetMany retrieves contacts by their IDs. Missing IDs are skipped.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]*Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, created_at, updated_at
		 FROM contacts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

// List retrieves all contacts ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, created_at, updated_at
		 FROM contacts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, &c)
	}
	return contacts, rows.Err()
}

// Create creates a new contact.
func (r *PostgresRepository) Create(ctx context.Context, c *Contact) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contacts (id, name, email, phone, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name, c.Email, c.Phone, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// Update updates an existing contact.
func (r *PostgresRepository) Update(ctx context.Context, c *Contact) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE contacts SET name = $2, email = $3, phone = $4, updated_at = $5
		 WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Delete deletes a contact by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
