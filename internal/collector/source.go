package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source evaluates a collector query for a single item name and returns
// the numeric columns of the result row keyed by column name.
type Source interface {
	Collect(ctx context.Context, col *Collector, itemName string) (map[string]float64, error)
}

// PostgresSource runs collector queries against the metrics database.
// The pool is separate from the application store so a slow or broken
// metrics query cannot starve API traffic.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a metrics-database collector source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Collect runs the collector query with the item name bound as $1.
// The query must return exactly one row; non-numeric columns are skipped.
func (s *PostgresSource) Collect(ctx context.Context, col *Collector, itemName string) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, col.Query, itemName)
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", col.Name, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("collector %s: %w", col.Name, err)
		}
		return nil, fmt.Errorf("collector %s: %w", col.Name, ErrItemNotFound)
	}

	values, err := rows.Values()
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", col.Name, err)
	}

	out := make(map[string]float64, len(values))
	for i, fd := range rows.FieldDescriptions() {
		if v, ok := asFloat(values[i]); ok {
			out[fd.Name] = v
		}
	}

	if rows.Next() {
		return nil, fmt.Errorf("collector %s: query returned more than one row", col.Name)
	}
	return out, rows.Err()
}

// asFloat coerces the numeric types pgx hands back into float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int16:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// StaticSource returns canned values, for tests and local development.
type StaticSource struct {
	// Values is keyed by "collectorID/itemName".
	Values map[string]map[string]float64
	// Err, when set, is returned from every Collect call.
	Err error
}

// Collect returns the canned value set for the collector/item pair.
func (s *StaticSource) Collect(_ context.Context, col *Collector, itemName string) (map[string]float64, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	vals, ok := s.Values[col.ID+"/"+itemName]
	if !ok {
		return nil, ErrItemNotFound
	}
	return vals, nil
}

var (
	_ Source = (*PostgresSource)(nil)
	_ Source = (*StaticSource)(nil)
)

// ErrNoSource is returned when collection is attempted without a configured source.
var ErrNoSource = errors.New("no collector source configured")
