// Package scheduler decides which indicators are due and hands them to
// the execution worker.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/realtime"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

const meterName = "github.com/pulsewatch/pulsewatch/internal/scheduler"

// Config holds scheduler dependencies and tuning.
type Config struct {
	Indicators indicator.Repository
	Schedules  schedule.Repository
	Executor   *worker.Executor
	Publisher  *realtime.Publisher
	Logger     zerolog.Logger

	// Tick is the due-scan interval. Default 15s.
	Tick time.Duration

	// BatchLimit bounds indicators claimed per tick. Default 50.
	BatchLimit int

	// StaleRunThreshold enables the stale-run reaper when positive.
	StaleRunThreshold time.Duration
}

// Runner periodically scans for due indicators, claims them and
// dispatches them to the executor.
type Runner struct {
	indicators indicator.Repository
	schedules  schedule.Repository
	executor   *worker.Executor
	pub        *realtime.Publisher
	logger     zerolog.Logger

	tick           time.Duration
	batchLimit     int
	staleThreshold time.Duration

	mDispatched metric.Int64Counter
	mErrors     metric.Int64Counter
	mTickDur    metric.Float64Histogram
}

// New creates a scheduler runner.
func New(cfg Config) (*Runner, error) {
	tick := cfg.Tick
	if tick <= 0 {
		tick = 15 * time.Second
	}
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = 50
	}

	meter := otel.Meter(meterName)
	dispatched, err := meter.Int64Counter("scheduler.indicators.dispatched",
		metric.WithDescription("Indicators claimed and dispatched to the worker"))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("scheduler.errors",
		metric.WithDescription("Errors during the scheduler tick"))
	if err != nil {
		return nil, err
	}
	tickDur, err := meter.Float64Histogram("scheduler.tick.duration",
		metric.WithDescription("Duration of a scheduler tick in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Runner{
		indicators:     cfg.Indicators,
		schedules:      cfg.Schedules,
		executor:       cfg.Executor,
		pub:            cfg.Publisher,
		logger:         cfg.Logger,
		tick:           tick,
		batchLimit:     batchLimit,
		staleThreshold: cfg.StaleRunThreshold,
		mDispatched:    dispatched,
		mErrors:        errs,
		mTickDur:       tickDur,
	}, nil
}

// Run executes the due-scan loop until ctx is cancelled. The first tick
// fires immediately so a restart does not wait a full interval.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	r.tickOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.executor.Wait()
			return ctx.Err()
		case <-ticker.C:
			r.tickOnce(ctx)
		}
	}
}

// TickNow forces a single due-scan outside the loop. The manual worker
// trigger endpoint uses it.
func (r *Runner) TickNow(ctx context.Context) {
	r.tickOnce(ctx)
}

// tickOnce scans, claims and dispatches one batch of due indicators.
func (r *Runner) tickOnce(ctx context.Context) {
	start := time.Now()
	defer func() {
		r.mTickDur.Record(ctx, time.Since(start).Seconds())
	}()

	if r.staleThreshold > 0 {
		r.executor.ResetStaleRuns(ctx, r.staleThreshold)
	}

	candidates, err := r.indicators.ListDue(ctx, r.batchLimit)
	if err != nil {
		r.mErrors.Add(ctx, 1)
		r.logger.Error().Err(err).Msg("list due indicators")
		return
	}

	due, nextRun := r.filterDue(ctx, candidates, start)

	r.executor.Tracker().BeginBatch(len(due), start)
	nextTick := start.Add(r.tick)
	r.executor.Tracker().SetNextTick(nextTick)

	dispatched := 0
	for _, ind := range due {
		if err := r.indicators.ClaimForRun(ctx, ind.ID); err != nil {
			// Another worker instance won the claim; not an error.
			continue
		}
		r.executor.Dispatch(ctx, ind)
		dispatched++
	}

	if dispatched > 0 {
		r.mDispatched.Add(ctx, int64(dispatched))
		r.logger.Debug().
			Int("candidates", len(candidates)).
			Int("due", len(due)).
			Int("dispatched", dispatched).
			Msg("scheduled batch")
	}

	r.emitSchedule(ctx, nextRun, nextTick)
}

// filterDue applies each indicator's cron policy and returns the due set
// plus the earliest upcoming activation among the not-yet-due.
func (r *Runner) filterDue(ctx context.Context, candidates []*indicator.Indicator, now time.Time) ([]*indicator.Indicator, *time.Time) {
	scheds := make(map[string]*schedule.Schedule)
	var due []*indicator.Indicator
	var nextRun *time.Time

	for _, ind := range candidates {
		sched, ok := scheds[ind.ScheduleID]
		if !ok {
			var err error
			sched, err = r.schedules.Get(ctx, ind.ScheduleID)
			if err != nil {
				r.mErrors.Add(ctx, 1)
				r.logger.Error().Err(err).
					Str("indicator_id", ind.ID).
					Str("schedule_id", ind.ScheduleID).
					Msg("load schedule")
				continue
			}
			scheds[ind.ScheduleID] = sched
		}

		isDue, err := sched.DueAt(ind.LastRun.At, now)
		if err != nil {
			r.mErrors.Add(ctx, 1)
			r.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("evaluate cron spec")
			continue
		}
		if isDue {
			due = append(due, ind)
			continue
		}

		last := now
		if ind.LastRun.At != nil {
			last = *ind.LastRun.At
		}
		if next, err := sched.NextAfter(last); err == nil {
			if nextRun == nil || next.Before(*nextRun) {
				nextRun = &next
			}
		}
	}
	return due, nextRun
}

// emitSchedule publishes the countdown and upcoming-schedule events.
func (r *Runner) emitSchedule(ctx context.Context, nextRun *time.Time, nextTick time.Time) {
	if r.pub == nil {
		return
	}

	at := nextTick
	if nextRun != nil && nextRun.Before(at) {
		at = *nextRun
	}
	r.pub.Emit(ctx, realtime.EventCountdownUpdate, realtime.CountdownUpdate{
		NextRunAt:        at,
		SecondsRemaining: int64(time.Until(at).Seconds()),
	})
	if nextRun != nil {
		r.pub.Emit(ctx, realtime.EventNextIndicatorSchedule, map[string]any{
			"nextRunAt": nextRun,
		})
	}
}
