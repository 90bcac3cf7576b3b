package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sched   Schedule
		wantErr bool
	}{
		{"five field spec", Schedule{Name: "every-five", CronSpec: "*/5 * * * *"}, false},
		{"descriptor", Schedule{Name: "hourly", CronSpec: "@hourly"}, false},
		{"every descriptor", Schedule{Name: "every-30s", CronSpec: "@every 30s"}, false},
		{"missing name", Schedule{CronSpec: "* * * * *"}, true},
		{"empty spec", Schedule{Name: "broken"}, true},
		{"six fields", Schedule{Name: "broken", CronSpec: "* * * * * *"}, true},
		{"garbage", Schedule{Name: "broken", CronSpec: "whenever"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sched.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedule_NextAfter(t *testing.T) {
	s := Schedule{Name: "every-five", CronSpec: "*/5 * * * *", Enabled: true}

	at := time.Date(2026, 8, 29, 10, 2, 0, 0, time.UTC)
	next, err := s.NextAfter(at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC), next)

	// Strictly after: sitting exactly on an activation advances to the next.
	onBoundary := time.Date(2026, 8, 29, 10, 5, 0, 0, time.UTC)
	next, err = s.NextAfter(onBoundary)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 10, 0, 0, time.UTC), next)
}

func TestSchedule_NextAfter_InvalidSpec(t *testing.T) {
	s := Schedule{Name: "broken", CronSpec: "nope"}
	_, err := s.NextAfter(time.Now())
	assert.Error(t, err)
}

func TestSchedule_DueAt(t *testing.T) {
	s := Schedule{Name: "every-five", CronSpec: "*/5 * * * *", Enabled: true}
	now := time.Date(2026, 8, 29, 10, 7, 0, 0, time.UTC)

	t.Run("never run is immediately due", func(t *testing.T) {
		due, err := s.DueAt(nil, now)
		require.NoError(t, err)
		assert.True(t, due)
	})

	t.Run("activation passed since last run", func(t *testing.T) {
		last := time.Date(2026, 8, 29, 10, 1, 0, 0, time.UTC)
		due, err := s.DueAt(&last, now)
		require.NoError(t, err)
		assert.True(t, due)
	})

	t.Run("not yet due", func(t *testing.T) {
		last := time.Date(2026, 8, 29, 10, 6, 0, 0, time.UTC)
		due, err := s.DueAt(&last, now)
		require.NoError(t, err)
		assert.False(t, due)
	})

	t.Run("disabled is never due", func(t *testing.T) {
		disabled := s
		disabled.Enabled = false
		due, err := disabled.DueAt(nil, now)
		require.NoError(t, err)
		assert.False(t, due)
	})

	t.Run("invalid spec surfaces the error", func(t *testing.T) {
		broken := Schedule{Name: "broken", CronSpec: "nope", Enabled: true}
		last := now.Add(-time.Hour)
		_, err := broken.DueAt(&last, now)
		assert.Error(t, err)
	})
}
