// Package worker runs claimed indicators: it executes their collectors,
// evaluates thresholds, raises alerts and reports execution status.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api/middleware"
	"github.com/pulsewatch/pulsewatch/internal/collector"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/realtime"
)

// Notifier delivers alert notifications to an indicator's contacts.
type Notifier interface {
	NotifyAlert(ctx context.Context, a *alert.Alert, contactIDs []string) error
}

// ExecutorConfig holds dependencies and tuning for the Executor.
type ExecutorConfig struct {
	Indicators indicator.Repository
	Collectors *collector.Service
	Alerts     *alert.Service
	Notifier   Notifier                     // optional
	Metrics    *middleware.ExecutionMetrics // optional
	Publisher  *realtime.Publisher
	Logger     zerolog.Logger

	// Concurrency bounds simultaneous executions. Default 8.
	Concurrency int

	// Timeout bounds a single collector run. Default 60s.
	Timeout time.Duration
}

// Executor runs claimed indicators with bounded concurrency.
type Executor struct {
	indicators indicator.Repository
	collectors *collector.Service
	alerts     *alert.Service
	notifier   Notifier
	metrics    *middleware.ExecutionMetrics
	pub        *realtime.Publisher
	logger     zerolog.Logger
	timeout    time.Duration
	tracker    *StatusTracker

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig) *Executor {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Executor{
		indicators: cfg.Indicators,
		collectors: cfg.Collectors,
		alerts:     cfg.Alerts,
		notifier:   cfg.Notifier,
		metrics:    cfg.Metrics,
		pub:        cfg.Publisher,
		logger:     cfg.Logger,
		timeout:    timeout,
		tracker:    NewStatusTracker(),
		sem:        make(chan struct{}, concurrency),
	}
}

// Tracker returns the status tracker shared with the API layer.
func (e *Executor) Tracker() *StatusTracker { return e.tracker }

// Dispatch runs the indicator on a worker goroutine once a concurrency
// slot is free. The indicator must already be claimed.
func (e *Executor) Dispatch(ctx context.Context, ind *indicator.Indicator) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			// Shutdown before the run started; release the claim.
			now := time.Now()
			if err := e.indicators.FinishRun(context.WithoutCancel(ctx), ind.ID, now, nil, indicator.RunResultError); err != nil {
				e.logger.Error().Err(err).Str("indicator_id", ind.ID).Msg("release claim on shutdown")
			}
			return
		}
		defer func() { <-e.sem }()

		e.Execute(ctx, ind)
	}()
}

// Wait blocks until all dispatched executions have finished.
func (e *Executor) Wait() { e.wg.Wait() }

// Execute runs a single claimed indicator synchronously. The running
// flag is always cleared, including on error and panic: a terminal run
// result and is_running are mutually exclusive.
func (e *Executor) Execute(ctx context.Context, ind *indicator.Indicator) {
	started := time.Now()
	e.tracker.Started(ind.ID)
	e.emitStarted(ctx, ind)

	var (
		value  *float64
		result = indicator.RunResultError
	)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("indicator_id", ind.ID).Any("panic", r).Msg("indicator execution panicked")
			result = indicator.RunResultError
		}

		finishCtx := context.WithoutCancel(ctx)
		if err := e.indicators.FinishRun(finishCtx, ind.ID, time.Now(), value, result); err != nil {
			e.logger.Error().Err(err).Str("indicator_id", ind.ID).Msg("record run outcome")
		}

		e.tracker.Finished(ind.ID)
		if e.metrics != nil {
			e.metrics.RecordExecution(ind.CollectorID, string(result), time.Since(started))
		}
		e.emitCompleted(finishCtx, ind, result, value, time.Since(started))
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	values, err := e.collectors.Collect(runCtx, ind.CollectorID, ind.ItemName)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("indicator_id", ind.ID).
			Str("collector_id", ind.CollectorID).
			Msg("collector run failed")
		return
	}

	v, ok := values[ind.Threshold.Field]
	if !ok {
		e.logger.Warn().
			Str("indicator_id", ind.ID).
			Str("field", ind.Threshold.Field).
			Msg("collector result is missing the threshold field")
		return
	}
	value = &v

	if !ind.Threshold.Breached(v) {
		result = indicator.RunResultOK
		return
	}

	result = indicator.RunResultBreach
	e.raiseAlert(runCtx, ind, v)
}

// raiseAlert creates the alert, notifies contacts and emits the event.
func (e *Executor) raiseAlert(ctx context.Context, ind *indicator.Indicator, value float64) {
	a, err := e.alerts.Raise(ctx, ind.ID, ind.Name, ind.Threshold.Field, value, ind.Threshold.Value)
	if err != nil {
		e.logger.Error().Err(err).Str("indicator_id", ind.ID).Msg("raise alert")
		return
	}

	e.logger.Info().
		Str("indicator_id", ind.ID).
		Str("alert_id", a.ID).
		Str("severity", string(a.Severity)).
		Float64("value", value).
		Msg("alert raised")

	if e.metrics != nil {
		e.metrics.RecordAlert(ind.ID, string(a.Severity))
	}

	if e.pub != nil {
		e.pub.Emit(ctx, realtime.EventAlertTriggered, realtime.AlertTriggered{
			AlertID:       a.ID,
			IndicatorID:   ind.ID,
			IndicatorName: ind.Name,
			Severity:      string(a.Severity),
			Value:         value,
			Threshold:     ind.Threshold.Value,
		})
	}

	if e.notifier == nil {
		return
	}
	contactIDs, err := e.indicators.ContactIDs(ctx, ind.ID)
	if err != nil {
		e.logger.Error().Err(err).Str("indicator_id", ind.ID).Msg("load alert contacts")
		return
	}
	if err := e.notifier.NotifyAlert(ctx, a, contactIDs); err != nil {
		e.logger.Error().Err(err).Str("alert_id", a.ID).Msg("notify alert contacts")
	}
}

// ResetStaleRuns reaps indicators stuck in the running state, e.g. after
// a worker crash, so the scheduler can pick them up again.
func (e *Executor) ResetStaleRuns(ctx context.Context, olderThan time.Duration) {
	ids, err := e.indicators.ResetStaleRuns(ctx, olderThan)
	if err != nil {
		e.logger.Error().Err(err).Msg("reset stale runs")
		return
	}
	for _, id := range ids {
		e.logger.Warn().Str("indicator_id", id).Msg("reset stale running indicator")
	}
}

func (e *Executor) emitStarted(ctx context.Context, ind *indicator.Indicator) {
	if e.pub == nil {
		return
	}
	e.pub.Emit(ctx, realtime.EventIndicatorExecutionStarted, realtime.ExecutionStarted{
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
	})
	e.emitRunning(ctx)
}

func (e *Executor) emitCompleted(ctx context.Context, ind *indicator.Indicator, result indicator.RunResult, value *float64, dur time.Duration) {
	if e.pub == nil {
		return
	}
	e.pub.Emit(ctx, realtime.EventIndicatorExecutionCompleted, realtime.ExecutionCompleted{
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Result:        string(result),
		Value:         value,
		DurationMS:    dur.Milliseconds(),
	})

	status := e.tracker.Snapshot()
	if status.BatchTotal > 0 {
		e.pub.Emit(ctx, realtime.EventIndicatorExecutionProgress, realtime.ExecutionProgress{
			IndicatorID: ind.ID,
			Completed:   status.BatchCompleted,
			Total:       status.BatchTotal,
			Percent:     100 * float64(status.BatchCompleted) / float64(status.BatchTotal),
		})
	}
	e.emitRunning(ctx)
}

func (e *Executor) emitRunning(ctx context.Context) {
	status := e.tracker.Snapshot()
	e.pub.Emit(ctx, realtime.EventRunningIndicatorsUpdate, status.RunningIDs)
	e.pub.Emit(ctx, realtime.EventWorkerStatusUpdate, status)
}
