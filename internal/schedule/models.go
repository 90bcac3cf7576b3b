// Package schedule provides reusable cron timing policies for indicators.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Repository errors.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
)

// cronParser accepts standard five-field cron specs plus descriptors
// like @every and @hourly.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a reusable timing policy attached to one or more indicators.
type Schedule struct {
	ID        string
	Name      string
	CronSpec  string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the schedule definition, including the cron spec.
func (s *Schedule) Validate() error {
	if s.Name == "" {
		return errors.New("schedule name is required")
	}
	if _, err := cronParser.Parse(s.CronSpec); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.CronSpec, err)
	}
	return nil
}

// NextAfter returns the next activation strictly after t.
func (s *Schedule) NextAfter(t time.Time) (time.Time, error) {
	spec, err := cronParser.Parse(s.CronSpec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", s.CronSpec, err)
	}
	return spec.Next(t), nil
}

// DueAt reports whether an indicator with this schedule is due at now,
// given its last run time. A nil last run means the indicator has never
// executed and is immediately due.
func (s *Schedule) DueAt(lastRun *time.Time, now time.Time) (bool, error) {
	if !s.Enabled {
		return false, nil
	}
	if lastRun == nil {
		return true, nil
	}
	next, err := s.NextAfter(*lastRun)
	if err != nil {
		return false, err
	}
	return !next.After(now), nil
}
