package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, &Schedule{Name: "every-five", CronSpec: "*/5 * * * *"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Enabled)

	_, err = svc.Create(ctx, &Schedule{Name: "broken", CronSpec: "nope"})
	assert.Error(t, err)
}

func TestService_EnableDisable(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, &Schedule{Name: "hourly", CronSpec: "@hourly"})
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, created.ID))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, svc.Enable(ctx, created.ID))
	got, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)

	assert.ErrorIs(t, svc.Disable(ctx, "sch_missing"), ErrScheduleNotFound)
}

func TestService_Update_RejectsInvalidSpec(t *testing.T) {
	svc := NewService(NewInMemoryRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, &Schedule{Name: "hourly", CronSpec: "@hourly"})
	require.NoError(t, err)

	created.CronSpec = "61 * * * *"
	_, err = svc.Update(ctx, created)
	assert.Error(t, err)
}
