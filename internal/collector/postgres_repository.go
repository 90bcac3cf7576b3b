package collector

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

// NewPostgresRepository creates a new PostgreSQL collector repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a collector by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Collector, error) {
	var col Collector
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, query, created_at, updated_at
		 FROM collectors WHERE id = $1`, id).Scan(
		&col.ID, &col.Name, &col.Description, &col.Query,
		&col.CreatedAt, &col.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCollectorNotFound
		}
		return nil, err
	}
	return &col, nil
}

// List retrieves all collectors ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Collector, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, query, created_at, updated_at
		 FROM collectors ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []*Collector
	for rows.Next() {
		var col Collector
		if err := rows.Scan(
			&col.ID, &col.Name, &col.Description, &col.Query,
			&col.CreatedAt, &col.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cols = append(cols, &col)
	}
	return cols, rows.Err()
}

// Create creates a new collector.
func (r *PostgresRepository) Create(ctx context.Context, col *Collector) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO collectors (id, name, description, query, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		col.ID, col.Name, col.Description, col.Query, col.CreatedAt, col.UpdatedAt,
	)
	return err
}

// Update updates an existing collector.
func (r *PostgresRepository) Update(ctx context.Context, col *Collector) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE collectors SET name = $2, description = $3, query = $4, updated_at = $5
		 WHERE id = $1`,
		col.ID, col.Name, col.Description, col.Query, col.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrCollectorNotFound
	}
	return nil
}

// Delete deletes a collector by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM collectors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrCollectorNotFound
	}
	return nil
}

// ItemNames enumerates the item names registered for a collector.
func (r *PostgresRepository) ItemNames(ctx context.Context, collectorID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT name FROM collector_items WHERE collector_id = $1 ORDER BY name`, collectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SetItemNames replaces the collector's item name set.
func (r *PostgresRepository) SetItemNames(ctx context.Context, collectorID string, names []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `DELETE FROM collector_items WHERE collector_id = $1`, collectorID); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := tx.Exec(ctx,
			`INSERT INTO collector_items (collector_id, name) VALUES ($1, $2)`, collectorID, name); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
