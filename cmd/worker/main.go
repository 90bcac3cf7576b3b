// Package main provides the entrypoint for the PulseWatch execution worker.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api/middleware"
	"github.com/pulsewatch/pulsewatch/internal/collector"
	"github.com/pulsewatch/pulsewatch/internal/config"
	"github.com/pulsewatch/pulsewatch/internal/contact"
	"github.com/pulsewatch/pulsewatch/internal/database"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/notify"
	"github.com/pulsewatch/pulsewatch/internal/realtime"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/telemetry"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "pulsewatch-worker"

	cfg := config.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PulseWatch worker")

	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Application store
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}

	// Metrics database collectors read from
	metricsPool, err := database.Connect(ctx, database.MetricsConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to metrics database")
	}
	defer metricsPool.Close()

	indicatorRepo := indicator.NewPostgresRepository(pool)
	collectorService := collector.NewService(
		collector.NewPostgresRepository(pool),
		collector.NewPostgresSource(metricsPool),
	)
	scheduleRepo := schedule.NewPostgresRepository(pool)
	alertService := alert.NewService(alert.NewPostgresRepository(pool))
	contactService := contact.NewService(contact.NewPostgresRepository(pool))

	// Events reach the api-process hub over Redis. Without Redis the
	// worker still runs; events just stay local.
	var bus realtime.Bus
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()
		bus = realtime.NewRedisBus(rdb, "pulsewatch:events", log)
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis event bus connected")
	} else {
		bus = realtime.NewInMemoryBus()
		log.Warn().Msg("no REDIS_ADDR configured - events will not reach the api process")
	}
	publisher := realtime.NewPublisher(bus, log)

	notifier := &notify.Fanout{Logger: log}
	if cfg.SendGridAPIKey != "" {
		notifier.Email = notify.NewEmailNotifier(notify.EmailNotifierConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.AlertFromEmail,
			Contacts:  contactService,
			Logger:    log,
		})
		log.Info().Msg("email notifier initialized")
	}
	if cfg.PubSubProjectID != "" {
		exporter, expErr := notify.NewAlertExporter(ctx, notify.AlertExporterConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.PubSubTopic,
			Logger:    log,
		})
		if expErr != nil {
			log.Fatal().Err(expErr).Msg("failed to initialize alert exporter")
		}
		defer exporter.Close()
		notifier.Exporter = exporter
		log.Info().Str("topic", cfg.PubSubTopic).Msg("alert exporter initialized")
	}

	executionMetrics, err := middleware.NewExecutionMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize execution metrics")
		os.Exit(1)
	}

	executor := worker.NewExecutor(worker.ExecutorConfig{
		Indicators:  indicatorRepo,
		Collectors:  collectorService,
		Alerts:      alertService,
		Notifier:    notifier,
		Metrics:     executionMetrics,
		Publisher:   publisher,
		Logger:      log,
		Concurrency: cfg.WorkerConcurrency,
		Timeout:     cfg.ExecutionTimeout,
	})

	runner, err := scheduler.New(scheduler.Config{
		Indicators:        indicatorRepo,
		Schedules:         scheduleRepo,
		Executor:          executor,
		Publisher:         publisher,
		Logger:            log,
		Tick:              cfg.SchedulerTick,
		BatchLimit:        cfg.SchedulerBatch,
		StaleRunThreshold: cfg.StaleRunThreshold,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduler")
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		if runErr := runner.Run(runCtx); runErr != nil {
			log.Error().Err(runErr).Msg("scheduler stopped")
		}
	}()
	log.Info().
		Dur("tick", cfg.SchedulerTick).
		Int("concurrency", cfg.WorkerConcurrency).
		Msg("scheduler started")

	// Minimal HTTP server for container health probes.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"OK","version":%q}`, Version)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"FAIL","error":%q}`, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"OK"}`)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	stop()

	// Let in-flight executions finish before closing the pools.
	executor.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
