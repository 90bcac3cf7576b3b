// Package indicator provides Indicator management: schedulable checks
// against a collector with a threshold that raises alerts when breached.
package indicator

import (
	"errors"
	"fmt"
	"time"
)

// Repository errors.
var (
	ErrIndicatorNotFound = errors.New("indicator not found")
	ErrAlreadyRunning    = errors.New("indicator is already running")
	ErrIndicatorInactive = errors.New("indicator is deactivated")
)

// Comparison is the threshold comparison operator.
type Comparison string

// Supported comparison operators.
const (
	ComparisonGreater      Comparison = "gt"
	ComparisonGreaterEqual Comparison = "gte"
	ComparisonLess         Comparison = "lt"
	ComparisonLessEqual    Comparison = "lte"
	ComparisonEqual        Comparison = "eq"
	ComparisonNotEqual     Comparison = "neq"
)

// Valid reports whether c is a known comparison operator.
func (c Comparison) Valid() bool {
	switch c {
	case ComparisonGreater, ComparisonGreaterEqual, ComparisonLess,
		ComparisonLessEqual, ComparisonEqual, ComparisonNotEqual:
		return true
	}
	return false
}

// Threshold describes when an executed value is considered a breach.
type Threshold struct {
	// Field is the collector output column the threshold applies to.
	Field      string
	Comparison Comparison
	Value      float64
}

// Breached reports whether the executed value violates the threshold.
func (t Threshold) Breached(value float64) bool {
	switch t.Comparison {
	case ComparisonGreater:
		return value > t.Value
	case ComparisonGreaterEqual:
		return value >= t.Value
	case ComparisonLess:
		return value < t.Value
	case ComparisonLessEqual:
		return value <= t.Value
	case ComparisonEqual:
		return value == t.Value
	case ComparisonNotEqual:
		return value != t.Value
	}
	return false
}

// Validate checks the threshold definition.
func (t Threshold) Validate() error {
	if t.Field == "" {
		return errors.New("threshold field is required")
	}
	if !t.Comparison.Valid() {
		return fmt.Errorf("unknown comparison operator %q", t.Comparison)
	}
	return nil
}

// RunResult is the terminal outcome of an indicator execution.
type RunResult string

// Run results recorded on the indicator after execution.
const (
	RunResultOK     RunResult = "ok"
	RunResultBreach RunResult = "breach"
	RunResultError  RunResult = "error"
)

// LastRun captures the most recent execution of an indicator.
type LastRun struct {
	At     *time.Time
	Value  *float64
	Result RunResult
}

// Indicator is a named, schedulable check against a collector.
type Indicator struct {
	ID          string
	Name        string
	Description string
	OwnerID     string // contact that owns this indicator
	CollectorID string
	ItemName    string // collector item the check reads
	Threshold   Threshold
	ScheduleID  string
	Active      bool
	IsRunning   bool
	LastRun     LastRun
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the indicator definition before create/update.
func (i *Indicator) Validate() error {
	if i.Name == "" {
		return errors.New("indicator name is required")
	}
	if i.CollectorID == "" {
		return errors.New("collector is required")
	}
	if i.ScheduleID == "" {
		return errors.New("schedule is required")
	}
	return i.Threshold.Validate()
}
