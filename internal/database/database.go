// Package database provides PostgreSQL connection management for the
// application store and the metrics database collectors read from.
package database

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database connection configuration.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ConfigFromEnv creates the application store Config from environment variables.
func ConfigFromEnv() Config {
	return configFromEnv("DB", "pulsewatch")
}

// MetricsConfigFromEnv creates the metrics database Config. Collector
// queries run against this database, never against the application store.
// Falls back to the application store settings when METRICS_DB_HOST is unset.
func MetricsConfigFromEnv() Config {
	if os.Getenv("METRICS_DB_HOST") == "" {
		return ConfigFromEnv()
	}
	return configFromEnv("METRICS_DB", "metrics")
}

func configFromEnv(prefix, defaultName string) Config {
	port, _ := strconv.Atoi(getEnvOrDefault(prefix+"_PORT", "5432"))
	maxOpen, _ := strconv.Atoi(getEnvOrDefault(prefix+"_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault(prefix+"_MAX_IDLE_CONNS", "5"))
	lifetime, _ := time.ParseDuration(getEnvOrDefault(prefix+"_CONN_MAX_LIFETIME", "5m"))

	return Config{
		Host:            getEnvOrDefault(prefix+"_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault(prefix+"_USER", "pulsewatch"),
		Password:        getEnvOrDefault(prefix+"_PASSWORD", "localdev"),
		Database:        getEnvOrDefault(prefix+"_NAME", defaultName),
		SSLMode:         getEnvOrDefault(prefix+"_SSL_MODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: lifetime,
	}
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Connect creates a new database connection pool.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns) //nolint:gosec // MaxOpenConns is bounded by config validation
	poolConfig.MinConns = int32(cfg.MaxIdleConns) //nolint:gosec // MaxIdleConns is bounded by config validation
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
