// Package api provides the HTTP API for PulseWatch.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/alert"
	"github.com/pulsewatch/pulsewatch/internal/api/handler"
	"github.com/pulsewatch/pulsewatch/internal/api/middleware"
	"github.com/pulsewatch/pulsewatch/internal/auth"
	"github.com/pulsewatch/pulsewatch/internal/collector"
	"github.com/pulsewatch/pulsewatch/internal/contact"
	"github.com/pulsewatch/pulsewatch/internal/indicator"
	"github.com/pulsewatch/pulsewatch/internal/realtime"
	"github.com/pulsewatch/pulsewatch/internal/resilience"
	"github.com/pulsewatch/pulsewatch/internal/schedule"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/worker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	ServiceName      string
	Metrics          *middleware.Metrics
	AuthService      *auth.Service
	IndicatorService *indicator.Service
	CollectorService *collector.Service
	ScheduleService  *schedule.Service
	AlertService     *alert.Service
	ContactService   *contact.Service

	// Executor runs manual indicator executions in-process.
	Executor *worker.Executor
	// Runner, StatusTracker and StatusFeed serve the worker endpoints.
	// Any of them may be nil depending on the deployment shape.
	Runner        *scheduler.Runner
	StatusTracker *worker.StatusTracker
	StatusFeed    *worker.StatusFeed

	// Hub is mounted at /hubs/monitoring when set.
	Hub *realtime.Hub

	// Upstreams feeds the ops status endpoint. Defaults to the global
	// resilience registry.
	Upstreams *resilience.Registry
	// SubsystemChecks are the readiness probes (database and friends).
	SubsystemChecks []handler.SubsystemCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "pulsewatch-api"
	}
	upstreams := cfg.Upstreams
	if upstreams == nil {
		upstreams = resilience.GlobalRegistry
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.SubsystemChecks, upstreams)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	indicatorHandler := handler.NewIndicatorHandler(cfg.IndicatorService, cfg.Executor)
	collectorHandler := handler.NewCollectorHandler(cfg.CollectorService)
	scheduleHandler := handler.NewScheduleHandler(cfg.ScheduleService, cfg.IndicatorService)
	alertHandler := handler.NewAlertHandler(cfg.AlertService, cfg.IndicatorService)
	contactHandler := handler.NewContactHandler(cfg.ContactService)
	workerHandler := handler.NewWorkerHandler(cfg.StatusFeed, cfg.StatusTracker, cfg.Runner)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit) // 10 requests per minute per IP
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			// logout-all requires authentication
			r.With(authMiddleware).Post("/logout-all", authHandler.LogoutAll)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Everything below requires authentication - user-based rate limiting
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user

			// Indicators
			r.Route("/indicators", func(r chi.Router) {
				r.Get("/", indicatorHandler.List)
				r.Post("/", indicatorHandler.Create)
				r.Route("/{indicatorId}", func(r chi.Router) {
					r.Get("/", indicatorHandler.Get)
					r.Put("/", indicatorHandler.Update)
					r.Delete("/", indicatorHandler.Delete)
					r.Post("/execute", indicatorHandler.Execute)
					r.Post("/deactivate", indicatorHandler.Deactivate)
					r.Put("/contacts", indicatorHandler.SetContacts)
				})
			})

			// Collectors
			r.Route("/collectors", func(r chi.Router) {
				r.Get("/", collectorHandler.List)
				r.Post("/", collectorHandler.Create)
				r.Route("/{collectorId}", func(r chi.Router) {
					r.Get("/", collectorHandler.Get)
					r.Put("/", collectorHandler.Update)
					r.Delete("/", collectorHandler.Delete)
					r.Get("/items", collectorHandler.Items)
				})
			})

			// Schedules
			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", scheduleHandler.List)
				r.Post("/", scheduleHandler.Create)
				r.Get("/due", scheduleHandler.Due)
				r.Route("/{scheduleId}", func(r chi.Router) {
					r.Get("/", scheduleHandler.Get)
					r.Put("/", scheduleHandler.Update)
					r.Delete("/", scheduleHandler.Delete)
					r.Post("/enable", scheduleHandler.Enable)
					r.Post("/disable", scheduleHandler.Disable)
				})
			})

			// Alerts
			r.Route("/alerts", func(r chi.Router) {
				r.Get("/", alertHandler.List)
				r.Post("/", alertHandler.Create)
				r.Route("/{alertId}", func(r chi.Router) {
					r.Get("/", alertHandler.Get)
					r.Post("/resolve", alertHandler.Resolve)
				})
			})

			// Contacts
			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", contactHandler.List)
				r.Post("/", contactHandler.Create)
				r.Route("/{contactId}", func(r chi.Router) {
					r.Get("/", contactHandler.Get)
					r.Put("/", contactHandler.Update)
					r.Delete("/", contactHandler.Delete)
				})
			})

			// Worker
			r.Route("/worker", func(r chi.Router) {
				r.Get("/status", workerHandler.Status)
				r.With(standardRateLimit).Post("/trigger", workerHandler.Trigger)
			})
		})
	})

	// Realtime hub - WebSocket upgrade, no JSON content type middleware.
	// The hub validates the access_token query parameter on upgrade.
	if cfg.Hub != nil {
		r.Handle("/hubs/monitoring", cfg.Hub)
	}

	return r
}
