package indicator

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL indicator repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const indicatorColumns = `
	id, name, description, owner_id, collector_id, item_name,
	threshold_field, threshold_comparison, threshold_value,
	schedule_id, active, is_running,
	last_run_at, last_run_value, last_run_result,
	created_at, updated_at
`

// Get retrieves an indicator by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Indicator, error) {
	query := `SELECT ` + indicatorColumns + ` FROM indicators WHERE id = $1`

	ind, err := scanIndicator(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIndicatorNotFound
		}
		return nil, err
	}
	return ind, nil
}

// List retrieves a page of indicators ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	where := ""
	if opts.ActiveOnly {
		where = "WHERE active"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM indicators `+where).Scan(&total); err != nil {
		return nil, err
	}

	query := `SELECT ` + indicatorColumns + `
		FROM indicators ` + where + `
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Indicator
	for rows.Next() {
		ind, err := scanIndicator(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Page: page, TotalCount: total}, nil
}

// Create creates a new indicator.
func (r *PostgresRepository) Create(ctx context.Context, ind *Indicator) error {
	query := `
		INSERT INTO indicators (
			id, name, description, owner_id, collector_id, item_name,
			threshold_field, threshold_comparison, threshold_value,
			schedule_id, active, is_running, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		ind.ID,
		ind.Name,
		ind.Description,
		ind.OwnerID,
		ind.CollectorID,
		ind.ItemName,
		ind.Threshold.Field,
		string(ind.Threshold.Comparison),
		ind.Threshold.Value,
		ind.ScheduleID,
		ind.Active,
		ind.IsRunning,
		ind.CreatedAt,
		ind.UpdatedAt,
	)
	return err
}

// Update updates an existing indicator's definition.
func (r *PostgresRepository) Update(ctx context.Context, ind *Indicator) error {
	query := `
		UPDATE indicators SET
			name = $2,
			description = $3,
			owner_id = $4,
			collector_id = $5,
			item_name = $6,
			threshold_field = $7,
			threshold_comparison = $8,
			threshold_value = $9,
			schedule_id = $10,
			active = $11,
			updated_at = $12
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		ind.ID,
		ind.Name,
		ind.Description,
		ind.OwnerID,
		ind.CollectorID,
		ind.ItemName,
		ind.Threshold.Field,
		string(ind.Threshold.Comparison),
		ind.Threshold.Value,
		ind.ScheduleID,
		ind.Active,
		ind.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// Delete hard-deletes an indicator. Primary flows use SetActive instead.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM indicators WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// SetActive flips the soft-deactivation flag.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE indicators SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// ListDue returns active, not-running indicators with an enabled schedule.
// Cron-level due filtering happens in the scheduler; this narrows the batch.
func (r *PostgresRepository) ListDue(ctx context.Context, limit int) ([]*Indicator, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + indicatorColumns + `
		FROM indicators i
		WHERE i.active
		  AND NOT i.is_running
		  AND EXISTS (
			SELECT 1 FROM schedules s WHERE s.id = i.schedule_id AND s.enabled
		  )
		ORDER BY i.last_run_at NULLS FIRST
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Indicator
	for rows.Next() {
		ind, err := scanIndicator(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ind)
	}
	return items, rows.Err()
}

// ClaimForRun atomically marks the indicator as running.
func (r *PostgresRepository) ClaimForRun(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE indicators SET is_running = true, updated_at = now()
		 WHERE id = $1 AND active AND NOT is_running`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		var active, running bool
		err := r.pool.QueryRow(ctx,
			`SELECT active, is_running FROM indicators WHERE id = $1`, id).Scan(&active, &running)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrIndicatorNotFound
		}
		if err != nil {
			return err
		}
		if !active {
			return ErrIndicatorInactive
		}
		return ErrAlreadyRunning
	}
	return nil
}

// FinishRun records the run outcome and clears the running flag.
func (r *PostgresRepository) FinishRun(ctx context.Context, id string, at time.Time, value *float64, result RunResult) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE indicators SET
			is_running = false,
			last_run_at = $2,
			last_run_value = $3,
			last_run_result = $4,
			updated_at = now()
		 WHERE id = $1`,
		id, at, value, string(result))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// ResetStaleRuns clears the running flag on indicators stuck past the threshold.
func (r *PostgresRepository) ResetStaleRuns(ctx context.Context, olderThan time.Duration) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE indicators SET is_running = false, last_run_result = 'error', updated_at = now()
		 WHERE is_running AND updated_at < now() - $1::interval
		 RETURNING id`,
		olderThan.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetContacts replaces the indicator's notification contact set.
func (r *PostgresRepository) SetContacts(ctx context.Context, id string, contactIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `DELETE FROM indicator_contacts WHERE indicator_id = $1`, id); err != nil {
		return err
	}
	for _, cid := range contactIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO indicator_contacts (indicator_id, contact_id) VALUES ($1, $2)`, id, cid); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ContactIDs returns the notification contacts linked to the indicator.
func (r *PostgresRepository) ContactIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT contact_id FROM indicator_contacts WHERE indicator_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	return ids, rows.Err()
}

// scanIndicator scans an indicator from a row.
func scanIndicator(row pgx.Row) (*Indicator, error) {
	var (
		ind        Indicator
		comparison string
		lastResult *string
	)

	err := row.Scan(
		&ind.ID,
		&ind.Name,
		&ind.Description,
		&ind.OwnerID,
		&ind.CollectorID,
		&ind.ItemName,
		&ind.Threshold.Field,
		&comparison,
		&ind.Threshold.Value,
		&ind.ScheduleID,
		&ind.Active,
		&ind.IsRunning,
		&ind.LastRun.At,
		&ind.LastRun.Value,
		&lastResult,
		&ind.CreatedAt,
		&ind.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ind.Threshold.Comparison = Comparison(comparison)
	if lastResult != nil {
		ind.LastRun.Result = RunResult(*lastResult)
	}
	return &ind, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
