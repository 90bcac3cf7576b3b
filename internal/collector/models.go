// Package collector provides named data sources indicators read from.
// Each collector wraps a SQL query against the metrics database and
// exposes a set of item names the query can be evaluated for.
package collector

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrCollectorNotFound = errors.New("collector not found")
	ErrItemNotFound      = errors.New("collector item not found")
)

// Collector is a named data source backed by a metrics-database query.
//
// Query must return a single row of numeric columns for a given item
// name, bound as $1. The indicator's threshold field selects the column.
type Collector struct {
	ID          string
	Name        string
	Description string
	Query       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the collector definition.
func (c *Collector) Validate() error {
	if c.Name == "" {
		return errors.New("collector name is required")
	}
	if c.Query == "" {
		return errors.New("collector query is required")
	}
	return nil
}
