// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads an optional .env file and returns the merged configuration.
// Environment variables always win over .env values.
func Load() Config {
	// Missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	return Config{
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("APP_PORT", "8080"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "https://api.pulsewatch.io"),
		JWTAudience:   getEnv("JWT_AUDIENCE", "pulsewatch-api"),

		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: getEnv("OTEL_ENABLED", "") == "true",

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		AlertFromEmail: getEnv("ALERT_FROM_EMAIL", "alerts@pulsewatch.io"),

		PubSubProjectID: getEnv("PUBSUB_PROJECT_ID", ""),
		PubSubTopic:     getEnv("PUBSUB_ALERT_TOPIC", "pulsewatch-alerts"),

		SchedulerTick:     getDuration("SCHEDULER_TICK", 15*time.Second),
		SchedulerBatch:    getInt("SCHEDULER_BATCH_LIMIT", 50),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 8),
		ExecutionTimeout:  getDuration("EXECUTION_TIMEOUT", 60*time.Second),
		StaleRunThreshold: getDuration("STALE_RUN_THRESHOLD", 10*time.Minute),
		WorkerEnabled:     getEnv("WORKER_ENABLED", "true") == "true",
	}
}

// Config holds the runtime configuration shared by the api and worker binaries.
type Config struct {
	Env  string
	Port string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	OTLPEndpoint     string
	TelemetryEnabled bool

	// RedisAddr enables the Redis event bus when set. With an empty
	// address events stay in-process.
	RedisAddr     string
	RedisPassword string

	SendGridAPIKey string
	AlertFromEmail string

	// PubSubProjectID enables the alert export publisher when set.
	PubSubProjectID string
	PubSubTopic     string

	SchedulerTick     time.Duration
	SchedulerBatch    int
	WorkerConcurrency int
	ExecutionTimeout  time.Duration
	StaleRunThreshold time.Duration
	WorkerEnabled     bool
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
