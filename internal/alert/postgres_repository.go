package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, indicator_id, indicator_name, severity, message,
	triggered_value, threshold_field, threshold_value,
	resolved, resolved_by, resolved_at, created_at
`

// Get retrieves an alert by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// List retrieves a page of alerts, newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	where := "WHERE true"
	args := []any{}
	if opts.UnresolvedOnly {
		where += " AND NOT resolved"
	}
	if opts.IndicatorID != "" {
		args = append(args, opts.IndicatorID)
		where += fmt.Sprintf(" AND indicator_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM alerts `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM alerts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		alertColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ListResult{Items: items, Page: page, TotalCount: total}, nil
}

// Create creates a new alert.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO alerts (
			id, indicator_id, indicator_name, severity, message,
			triggered_value, threshold_field, threshold_value,
			resolved, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.IndicatorID, a.IndicatorName, string(a.Severity), a.Message,
		a.TriggeredValue, a.ThresholdField, a.ThresholdValue,
		a.Resolved, a.CreatedAt,
	)
	return err
}

// MarkResolved persists the resolution fields.
func (r *PostgresRepository) MarkResolved(ctx context.Context, a *Alert) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE alerts SET resolved = true, resolved_by = $2, resolved_at = $3
		 WHERE id = $1 AND NOT resolved`,
		a.ID, a.ResolvedBy, a.ResolvedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

// CountUnresolved returns the number of open alerts.
func (r *PostgresRepository) CountUnresolved(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM alerts WHERE NOT resolved`).Scan(&n)
	return n, err
}

// scanAlert scans an alert from a row.
func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a        Alert
		severity string
	)
	err := row.Scan(
		&a.ID, &a.IndicatorID, &a.IndicatorName, &severity, &a.Message,
		&a.TriggeredValue, &a.ThresholdField, &a.ThresholdValue,
		&a.Resolved, &a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Severity = Severity(severity)
	return &a, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
