// Package alert provides alerts raised when an indicator execution
// breaches its threshold.
package alert

import (
	"errors"
	"time"
)

// Repository and service errors.
var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrAlreadyResolved  = errors.New("alert is already resolved")
	ErrResolverRequired = errors.New("resolver identity is required")
)

// Severity classifies how far the triggering value breached the threshold.
type Severity string

// Alert severities.
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert records a threshold breach for an indicator.
type Alert struct {
	ID            string
	IndicatorID   string
	IndicatorName string
	Severity      Severity
	Message       string

	// Snapshot of the execution that raised the alert.
	TriggeredValue float64
	ThresholdField string
	ThresholdValue float64

	Resolved   bool
	ResolvedBy *string
	ResolvedAt *time.Time

	CreatedAt time.Time
}

// Resolve marks the alert resolved. A resolved alert always carries the
// resolver identity and resolution time.
func (a *Alert) Resolve(by string, at time.Time) error {
	if by == "" {
		return ErrResolverRequired
	}
	if a.Resolved {
		return ErrAlreadyResolved
	}
	a.Resolved = true
	a.ResolvedBy = &by
	a.ResolvedAt = &at
	return nil
}
