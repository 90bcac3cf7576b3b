package schedule

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

// NewPostgresRepository creates a new PostgreSQL schedule repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a schedule by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Schedule, error) {
	var sched Schedule
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, cron_spec, enabled, created_at, updated_at
		 FROM schedules WHERE id = $1`, id).Scan(
		&sched.ID, &sched.Name, &sched.CronSpec, &sched.Enabled,
		&sched.CreatedAt, &sched.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return &sched, nil
}

// List retrieves all schedules ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, cron_spec, enabled, created_at, updated_at
		 FROM schedules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scheds []*Schedule
	for rows.Next() {
		var sched Schedule
		if err := rows.Scan(
			&sched.ID, &sched.Name, &sched.CronSpec, &sched.Enabled,
			&sched.CreatedAt, &sched.UpdatedAt,
		); err != nil {
			return nil, err
		}
		scheds = append(scheds, &sched)
	}
	return scheds, rows.Err()
}

// Create creates a new schedule.
func (r *PostgresRepository) Create(ctx context.Context, sched *Schedule) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO schedules (id, name, cron_spec, enabled, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sched.ID, sched.Name, sched.CronSpec, sched.Enabled,
		sched.CreatedAt, sched.UpdatedAt,
	)
	return err
}

// Update updates an existing schedule.
func (r *PostgresRepository) Update(ctx context.Context, sched *Schedule) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE schedules SET name = $2, cron_spec = $3, enabled = $4, updated_at = $5
		 WHERE id = $1`,
		sched.ID, sched.Name, sched.CronSpec, sched.Enabled, sched.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Delete deletes a schedule by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// SetEnabled flips the enabled flag.
func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE schedules SET enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
