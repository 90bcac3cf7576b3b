package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Raise_Severity(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold float64
		want      Severity
	}{
		{"small breach is a warning", 12, 10, SeverityWarning},
		{"just under half deviation", 14.9, 10, SeverityWarning},
		{"half deviation escalates", 15, 10, SeverityCritical},
		{"large breach", 100, 10, SeverityCritical},
		{"negative threshold", -12, -10, SeverityWarning},
		{"zero threshold", 1, 0, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(NewInMemoryRepository())
			a, err := svc.Raise(context.Background(), "ind_1", "failed-orders", "failed", tt.value, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Severity)
		})
	}
}

func TestService_Raise_Snapshot(t *testing.T) {
	svc := NewService(NewInMemoryRepository())

	a, err := svc.Raise(context.Background(), "ind_1", "failed-orders", "failed", 12, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "ind_1", a.IndicatorID)
	assert.Equal(t, "failed-orders", a.IndicatorName)
	assert.Equal(t, 12.0, a.TriggeredValue)
	assert.Equal(t, "failed", a.ThresholdField)
	assert.Equal(t, 10.0, a.ThresholdValue)
	assert.Contains(t, a.Message, "failed-orders")
	assert.False(t, a.Resolved)
	assert.Nil(t, a.ResolvedBy)
}

func TestService_Resolve(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	a, err := svc.Raise(ctx, "ind_1", "failed-orders", "failed", 12, 10)
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, a.ID, "ops@example.com")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "ops@example.com", *resolved.ResolvedBy)
	assert.NotNil(t, resolved.ResolvedAt)

	// Resolution is permanent.
	_, err = svc.Resolve(ctx, a.ID, "someone-else")
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestService_Resolve_RequiresResolver(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	a, err := svc.Raise(ctx, "ind_1", "failed-orders", "failed", 12, 10)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, a.ID, "")
	assert.ErrorIs(t, err, ErrResolverRequired)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Resolved)
}

func TestService_Resolve_NotFound(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	_, err := svc.Resolve(context.Background(), "alr_missing", "ops")
	assert.ErrorIs(t, err, ErrAlertNotFound)
}

func TestService_List_Filters(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	open, err := svc.Raise(ctx, "ind_1", "failed-orders", "failed", 12, 10)
	require.NoError(t, err)
	closed, err := svc.Raise(ctx, "ind_2", "slow-queries", "p95_ms", 900, 500)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, closed.ID, "ops")
	require.NoError(t, err)

	unresolved, err := svc.List(ctx, ListOptions{UnresolvedOnly: true})
	require.NoError(t, err)
	require.Len(t, unresolved.Items, 1)
	assert.Equal(t, open.ID, unresolved.Items[0].ID)

	byIndicator, err := svc.List(ctx, ListOptions{IndicatorID: "ind_2"})
	require.NoError(t, err)
	require.Len(t, byIndicator.Items, 1)
	assert.Equal(t, closed.ID, byIndicator.Items[0].ID)

	all, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, 2, all.TotalCount)
}

func TestService_CountUnresolved(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Raise(ctx, "ind_1", "failed-orders", "failed", 12, 10)
		require.NoError(t, err)
	}
	a, err := svc.Raise(ctx, "ind_1", "failed-orders", "failed", 12, 10)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, a.ID, "ops")
	require.NoError(t, err)

	n, err := svc.CountUnresolved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAlert_Resolve(t *testing.T) {
	a := &Alert{ID: "alr_1"}

	require.NoError(t, a.Resolve("ops", time.Now()))
	assert.True(t, a.Resolved)

	assert.ErrorIs(t, a.Resolve("ops", time.Now()), ErrAlreadyResolved)

	fresh := &Alert{ID: "alr_2"}
	assert.ErrorIs(t, fresh.Resolve("", time.Now()), ErrResolverRequired)
	assert.False(t, fresh.Resolved)
}
