package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"platewise/internal/config"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB is the global database manager instance
var DB *Manager

// initMutex prevents concurrent initialization
var initMutex sync.Mutex

// InitDB initializes the database manager, runs migrations and waits for
// the database to become healthy.
func InitDB(cfg *config.Config, logger *zap.Logger) error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if DB != nil {
		logger.Info("Database manager already initialized")
		return nil
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	if err := applyDatabaseDefaults(&cfg.Database, cfg.Server.Environment); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	manager, err := NewManager(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	DB = manager

	migrationsPath := determineMigrationsPath(cfg.Database.MigrationsPath)
	logger.Info("Using migrations path", zap.String("path", migrationsPath))

	if err := runMigrationsWithRetry(manager, migrationsPath, logger, 3); err != nil {
		DB = nil
		manager.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	healthTimeout := healthTimeoutForEnvironment(cfg.Server.Environment)
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	if err := waitForHealthWithBackoff(ctx, manager, logger); err != nil {
		DB = nil
		manager.Close()
		return fmt.Errorf("database failed to become healthy: %w", err)
	}

	manager.health.StartMonitoring()

	stats := manager.Stats()
	logger.Info("Database initialized successfully",
		zap.String("migrations_path", migrationsPath),
		zap.Int("max_open_connections", stats.MaxOpenConnections),
		zap.Int("open_connections", stats.OpenConnections),
	)
	return nil
}

// applyDatabaseDefaults fills environment-appropriate pool settings
func applyDatabaseDefaults(cfg *config.DatabaseConfig, environment string) error {
	if cfg.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch environment {
	case "production":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 50
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 20
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 15 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 200 * time.Millisecond
		}
		if !strings.Contains(cfg.URL, "sslmode=") {
			cfg.URL += " sslmode=require"
		}

	case "staging":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 25
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 10
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 10 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 100 * time.Millisecond
		}

	default: // development
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 10
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 5
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 5 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 50 * time.Millisecond
		}
	}

	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	return nil
}

// runMigrationsWithRetry retries transient migration failures
func runMigrationsWithRetry(manager *Manager, migrationsPath string, logger *zap.Logger, maxRetries int) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		logger.Info("Running database migrations",
			zap.String("path", migrationsPath),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		if err := manager.Migrate(migrationsPath); err != nil {
			lastErr = err
			if attempt < maxRetries {
				waitTime := time.Duration(attempt) * time.Second
				logger.Warn("Migration attempt failed, retrying",
					zap.Error(err),
					zap.Int("attempt", attempt),
					zap.Duration("retry_in", waitTime))
				time.Sleep(waitTime)
				continue
			}
		} else {
			logger.Info("Database migrations completed successfully")
			return nil
		}
	}

	return fmt.Errorf("migrations failed after %d attempts: %w", maxRetries, lastErr)
}

// waitForHealthWithBackoff polls health with exponential backoff
func waitForHealthWithBackoff(ctx context.Context, manager *Manager, logger *zap.Logger) error {
	backoff := time.Second
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database health: %w", ctx.Err())
		default:
		}

		healthStatus := manager.Health(ctx)
		if healthStatus.Status == StatusHealthy {
			logger.Info("Database is healthy",
				zap.Duration("response_time", healthStatus.ResponseTime))
			return nil
		}

		logger.Debug("Database not healthy yet, retrying",
			zap.String("status", healthStatus.Status),
			zap.Strings("errors", healthStatus.Errors),
			zap.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database health: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// determineMigrationsPath resolves the migrations directory with fallbacks
func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	paths := []string{
		"./migrations",
		"./internal/database/migrations",
		"./db/migrations",
		"../migrations",
		"../../migrations",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}

// healthTimeoutForEnvironment returns the startup health deadline
func healthTimeoutForEnvironment(environment string) time.Duration {
	switch environment {
	case "production":
		return 60 * time.Second
	case "staging":
		return 45 * time.Second
	default:
		return 30 * time.Second
	}
}

// GetDB returns the global manager
func GetDB() *Manager {
	return DB
}

// Close closes the global manager
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// Health reports the global manager's health
func Health(ctx context.Context) *HealthStatus {
	if DB == nil {
		return &HealthStatus{
			Status:    StatusUnhealthy,
			Timestamp: time.Now(),
			Errors:    []string{"Database not initialized"},
			Details:   make(map[string]interface{}),
		}
	}
	return DB.Health(ctx)
}

// GetMetrics returns the global manager's metrics snapshot
func GetMetrics() *MetricsSnapshot {
	if DB == nil {
		return &MetricsSnapshot{
			Timestamp: time.Now(),
		}
	}
	return DB.Metrics()
}

// ExecuteTransaction runs fn inside a transaction on the global manager
func ExecuteTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsConnected reports whether the database is reachable and healthy
func IsConnected(ctx context.Context) bool {
	if DB == nil {
		return false
	}

	status := DB.Health(ctx)
	return status.Status == StatusHealthy
}

// WaitForConnection blocks until the database is healthy or the timeout
// elapses
func WaitForConnection(ctx context.Context, timeout time.Duration) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	return DB.health.WaitForHealthy(ctx, timeout)
}

// GetConnectionStats returns pool statistics for diagnostics endpoints
func GetConnectionStats() map[string]interface{} {
	if DB == nil {
		return map[string]interface{}{
			"error": "database not initialized",
		}
	}

	stats := DB.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
		"utilization_percent":  float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100,
	}
}
