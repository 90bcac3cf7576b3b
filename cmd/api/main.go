// Package main provides the entrypoint for the PulseWatch API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api"
	"github.com/pulsewatch/pulsewatch/internal/api/handler"
	"github.com/pulsewatch/pulsewatch/internal/api/middleware"
	"github.com/pulsewatch/pulsewatch/internal/auth"
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
	const serviceName = "pulsewatch-api"

	cfg := config.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting PulseWatch API")

	// Initialize OpenTelemetry
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

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to the application store
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("application store connected")

	// Connect to the metrics database collectors read from
	metricsConfig := database.MetricsConfigFromEnv()
	metricsPool, err := database.Connect(ctx, metricsConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to metrics database")
	}
	defer metricsPool.Close()
	log.Info().
		Str("host", metricsConfig.Host).
		Str("database", metricsConfig.Database).
		Msg("metrics database connected")

	// Auth
	if cfg.JWTSigningKey == "" {
		cfg.JWTSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
		}),
		UserRepo:    auth.NewPostgresUserRepository(pool),
		RefreshRepo: auth.NewPostgresRefreshTokenRepository(pool),
	})

	// Domain services
	indicatorRepo := indicator.NewPostgresRepository(pool)
	indicatorService := indicator.NewService(indicatorRepo)
	collectorService := collector.NewService(
		collector.NewPostgresRepository(pool),
		collector.NewPostgresSource(metricsPool),
	)
	scheduleRepo := schedule.NewPostgresRepository(pool)
	scheduleService := schedule.NewService(scheduleRepo)
	alertService := alert.NewService(alert.NewPostgresRepository(pool))
	contactService := contact.NewService(contact.NewPostgresRepository(pool))

	// Event bus: Redis when configured so a separate worker process can
	// publish, in-process otherwise.
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
	}
	publisher := realtime.NewPublisher(bus, log)

	runCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	// Realtime hub
	hub := realtime.NewHub(authService.ValidateAccessToken, log)
	go func() {
		if runErr := hub.Run(runCtx, bus); runErr != nil {
			log.Error().Err(runErr).Msg("hub stopped")
		}
	}()

	// Alert notification fanout
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

	// Executor handles on-demand runs from the execute endpoint. With
	// WORKER_ENABLED the scheduler runs in-process too, so a single
	// binary covers small deployments.
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

	var runner *scheduler.Runner
	var feed *worker.StatusFeed
	if cfg.WorkerEnabled {
		runner, err = scheduler.New(scheduler.Config{
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
		go func() {
			if runErr := runner.Run(runCtx); runErr != nil {
				log.Error().Err(runErr).Msg("scheduler stopped")
			}
		}()
		log.Info().Dur("tick", cfg.SchedulerTick).Msg("in-process scheduler started")
	} else {
		// Worker runs elsewhere; mirror its status off the bus.
		feed = worker.NewStatusFeed(log)
		go func() {
			if runErr := feed.Run(runCtx, bus); runErr != nil {
				log.Error().Err(runErr).Msg("status feed stopped")
			}
		}()
	}

	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		AuthService:      authService,
		IndicatorService: indicatorService,
		CollectorService: collectorService,
		ScheduleService:  scheduleService,
		AlertService:     alertService,
		ContactService:   contactService,
		Executor:         executor,
		Runner:           runner,
		StatusTracker:    executor.Tracker(),
		StatusFeed:       feed,
		Hub:              hub,
		SubsystemChecks: []handler.SubsystemCheck{
			{Name: "database", Check: pool.Ping},
			{Name: "metrics-database", Check: metricsPool.Ping},
		},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	stopBackground()
	executor.Wait()

	log.Info().Msg("server stopped")
}
