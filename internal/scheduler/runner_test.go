package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/collector"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/realtime"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

type runnerEnv struct {
	runner     *Runner
	executor   *worker.Executor
	indicators *indicator.InMemoryRepository
	schedules  *schedule.InMemoryRepository
	collectors *collector.InMemoryRepository
	source     *collector.StaticSource
	bus        *realtime.InMemoryBus
}

func newRunnerEnv(t *testing.T) *runnerEnv {
	t.Helper()

	indicators := indicator.NewInMemoryRepository()
	schedules := schedule.NewInMemoryRepository()
	collectorRepo := collector.NewInMemoryRepository()
	source := &collector.StaticSource{Values: map[string]map[string]float64{}}
	collectors := collector.NewService(collectorRepo, source)
	alerts := alert.NewService(alert.NewInMemoryRepository())
	bus := realtime.NewInMemoryBus()
	pub := realtime.NewPublisher(bus, zerolog.Nop())

	executor := worker.NewExecutor(worker.ExecutorConfig{
		Indicators: indicators,
		Collectors: collectors,
		Alerts:     alerts,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
	})

	runner, err := New(Config{
		Indicators: indicators,
		Schedules:  schedules,
		Executor:   executor,
		Publisher:  pub,
		Logger:     zerolog.Nop(),
		Tick:       time.Minute,
		BatchLimit: 10,
	})
	require.NoError(t, err)

	return &runnerEnv{
		runner:     runner,
		executor:   executor,
		indicators: indicators,
		schedules:  schedules,
		collectors: collectorRepo,
		source:     source,
		bus:        bus,
	}
}

// seed inserts a schedule, collector and indicator wired together, with
// the given last run time. A nil last run means never executed.
func (env *runnerEnv) seed(t *testing.T, id string, lastRun *time.Time) *indicator.Indicator {
	t.Helper()
	ctx := context.Background()

	sched := &schedule.Schedule{ID: "sch_5min", Name: "every-five", CronSpec: "*/5 * * * *", Enabled: true}
	if _, err := env.schedules.Get(ctx, sched.ID); err != nil {
		require.NoError(t, env.schedules.Create(ctx, sched))
	}

	colID := "col_orders"
	if _, err := env.collectors.Get(ctx, colID); err != nil {
		require.NoError(t, env.collectors.Create(ctx, &collector.Collector{
			ID:    colID,
			Name:  "orders-db",
			Query: "SELECT 1",
		}))
	}
	env.source.Values[colID+"/eu-west"] = map[string]float64{"failed": 1}

	ind := &indicator.Indicator{
		ID:          id,
		Name:        "failed-orders",
		CollectorID: colID,
		ItemName:    "eu-west",
		ScheduleID:  sched.ID,
		Threshold:   indicator.Threshold{Field: "failed", Comparison: indicator.ComparisonGreater, Value: 10},
		Active:      true,
		LastRun:     indicator.LastRun{At: lastRun},
	}
	require.NoError(t, env.indicators.Create(ctx, ind))
	return ind
}

func TestRunner_TickNow_DispatchesDue(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	// Never executed, so immediately due.
	ind := env.seed(t, "ind_due", nil)

	env.runner.TickNow(ctx)
	env.executor.Wait()

	got, err := env.indicators.Get(ctx, ind.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRunning)
	assert.Equal(t, indicator.RunResultOK, got.LastRun.Result)

	status := env.executor.Tracker().Snapshot()
	assert.Equal(t, 1, status.BatchTotal)
	assert.NotNil(t, status.LastTickAt)
	assert.NotNil(t, status.NextTickAt)
}

func TestRunner_TickNow_SkipsNotYetDue(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	justRan := time.Now()
	ind := env.seed(t, "ind_recent", &justRan)

	env.runner.TickNow(ctx)
	env.executor.Wait()

	got, err := env.indicators.Get(ctx, ind.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRunning)
	// No execution happened, so the last run is untouched.
	assert.Equal(t, indicator.RunResult(""), got.LastRun.Result)
	require.NotNil(t, got.LastRun.At)
	assert.Equal(t, justRan.Unix(), got.LastRun.At.Unix())
}

func TestRunner_TickNow_DisabledScheduleNotDispatched(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	ind := env.seed(t, "ind_paused", nil)
	require.NoError(t, env.schedules.SetEnabled(ctx, ind.ScheduleID, false))

	env.runner.TickNow(ctx)
	env.executor.Wait()

	got, err := env.indicators.Get(ctx, ind.ID)
	require.NoError(t, err)
	assert.Equal(t, indicator.RunResult(""), got.LastRun.Result)
}

func TestRunner_TickNow_AlreadyClaimedSkipped(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	ind := env.seed(t, "ind_busy", nil)
	require.NoError(t, env.indicators.ClaimForRun(ctx, ind.ID))

	env.runner.TickNow(ctx)
	env.executor.Wait()

	got, err := env.indicators.Get(ctx, ind.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRunning, "the existing claim stays untouched")
	assert.Equal(t, indicator.RunResult(""), got.LastRun.Result)
}

func TestRunner_TickNow_EmitsCountdown(t *testing.T) {
	env := newRunnerEnv(t)
	ctx := context.Background()

	events, cancel, err := env.bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	env.runner.TickNow(ctx)
	env.executor.Wait()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Name == realtime.EventCountdownUpdate {
				return
			}
		case <-deadline:
			t.Fatal("no countdown event published")
		}
	}
}
