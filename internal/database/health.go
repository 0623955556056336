package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the current health status of the database
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
	Summary         *HealthSummary         `json:"summary,omitempty"`
}

// HealthSummary provides aggregated health information
type HealthSummary struct {
	CriticalIssues int        `json:"critical_issues"`
	Warnings       int        `json:"warnings"`
	LastHealthy    *time.Time `json:"last_healthy,omitempty"`
	UpSince        *time.Time `json:"up_since,omitempty"`
}

// HealthChecker runs connectivity, pool, performance and table checks
// on a schedule and caches the latest result.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger

	mu         sync.RWMutex
	isActive   int32
	isShutdown int32
	lastCheck  time.Time
	status     *HealthStatus

	alerting *HealthAlerting
	history  *HealthHistory

	stopCh  chan struct{}
	stopped chan struct{}

	checkInterval    time.Duration
	timeoutDuration  time.Duration
	criticalTables   []string
	slowQueryWarning time.Duration
}

// HealthAlerting handles health-based alerts
type HealthAlerting struct {
	consecutiveFailures int32
	lastAlertSent       time.Time
	alertThreshold      int32
	cooldownPeriod      time.Duration
}

// HealthHistory tracks health status over time
type HealthHistory struct {
	checks []HealthCheckRecord
	mu     sync.Mutex
}

type HealthCheckRecord struct {
	Timestamp time.Time
	Status    string
	Duration  time.Duration
	Issues    int
}

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusStarting  = "starting"
	StatusShutdown  = "shutdown"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		manager: manager,
		logger:  logger,

		isActive:   1,
		isShutdown: 0,

		checkInterval:    30 * time.Second,
		timeoutDuration:  10 * time.Second,
		slowQueryWarning: 200 * time.Millisecond,
		criticalTables:   []string{"users", "recipes", "cooking_sessions", "badges", "badge_progress", "notifications"},

		alerting: &HealthAlerting{
			alertThreshold: 3,
			cooldownPeriod: 5 * time.Minute,
		},
		history: &HealthHistory{
			checks: make([]HealthCheckRecord, 0, 100),
		},

		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	logger.Info("Health checker initialized",
		zap.Duration("check_interval", hc.checkInterval),
		zap.Duration("timeout", hc.timeoutDuration),
		zap.Strings("critical_tables", hc.criticalTables))

	return hc
}

// Check performs a comprehensive health check
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return &HealthStatus{
			Status:    StatusShutdown,
			Timestamp: time.Now(),
			Errors:    []string{"Health checker is shutdown"},
			Details:   make(map[string]interface{}),
		}
	}

	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Details:   make(map[string]interface{}),
		Errors:    make([]string, 0),
		Summary:   &HealthSummary{},
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeoutDuration)
	defer cancel()

	hc.runHealthChecks(ctx, status)

	status.ResponseTime = time.Since(start)
	status.Status = hc.determineOverallStatus(status)
	hc.updateHealthSummary(status)

	hc.cacheHealthResult(status)
	hc.recordHealthCheck(status)

	hc.handleHealthAlert(status)

	return status
}

// runHealthChecks executes all checks concurrently
func (hc *HealthChecker) runHealthChecks(ctx context.Context, status *HealthStatus) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hc.checkConnectivity(ctx, status); err != nil {
			mu.Lock()
			status.Errors = append(status.Errors, fmt.Sprintf("Connectivity: %v", err))
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		hc.checkConnectionPool(status)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hc.checkQueryPerformance(ctx, status); err != nil {
			mu.Lock()
			status.Errors = append(status.Errors, fmt.Sprintf("Query performance: %v", err))
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hc.checkTableAccess(ctx, status); err != nil {
			mu.Lock()
			status.Errors = append(status.Errors, fmt.Sprintf("Table access: %v", err))
			mu.Unlock()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		status.Errors = append(status.Errors, "Health check timeout")
		hc.logger.Warn("Health check timeout occurred",
			zap.Duration("timeout", hc.timeoutDuration))
	}
}

// checkConnectivity tests basic database connectivity
func (hc *HealthChecker) checkConnectivity(ctx context.Context, status *HealthStatus) error {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return fmt.Errorf("database connection is not active")
	}
	if hc.manager == nil || hc.manager.DB() == nil {
		return fmt.Errorf("database connection is nil")
	}

	start := time.Now()
	err := hc.manager.DB().PingContext(ctx)
	pingDuration := time.Since(start)

	status.Details["ping_duration"] = pingDuration
	status.Details["ping_success"] = err == nil

	if pingDuration > 1*time.Second {
		status.Details["ping_warning"] = "Very slow ping response"
		status.Summary.Warnings++
	} else if pingDuration > 500*time.Millisecond {
		status.Details["ping_warning"] = "Slow ping response"
		status.Summary.Warnings++
	}

	if err != nil {
		status.Summary.CriticalIssues++
		hc.logger.Error("Database ping failed",
			zap.Error(err),
			zap.Duration("duration", pingDuration))
	}

	return err
}

// checkConnectionPool analyzes connection pool health
func (hc *HealthChecker) checkConnectionPool(status *HealthStatus) {
	stats := hc.manager.DB().Stats()

	status.ConnectionCount = stats.OpenConnections
	poolMetrics := map[string]interface{}{
		"max_open":            stats.MaxOpenConnections,
		"open":                stats.OpenConnections,
		"in_use":              stats.InUse,
		"idle":                stats.Idle,
		"wait_count":          stats.WaitCount,
		"wait_duration_ms":    stats.WaitDuration.Milliseconds(),
		"max_idle_closed":     stats.MaxIdleClosed,
		"max_lifetime_closed": stats.MaxLifetimeClosed,
	}

	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		poolMetrics["utilization_percent"] = utilization * 100

		if utilization > 0.9 {
			status.Details["connection_critical"] = "Very high connection utilization"
			status.Summary.CriticalIssues++
		} else if utilization > 0.8 {
			status.Details["connection_warning"] = "High connection utilization"
			status.Summary.Warnings++
		}

		if stats.WaitCount > 1000 {
			status.Details["wait_warning"] = "High connection wait count"
			status.Summary.Warnings++
		}
	}

	status.Details["connection_pool"] = poolMetrics
}

// checkQueryPerformance runs probe queries and flags slow responses
func (hc *HealthChecker) checkQueryPerformance(ctx context.Context, status *HealthStatus) error {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return fmt.Errorf("database connection is not active")
	}

	queries := map[string]string{
		"simple_select": "SELECT 1",
		"time_check":    "SELECT NOW()",
	}

	queryResults := make(map[string]interface{})
	var totalDuration time.Duration

	for name, query := range queries {
		start := time.Now()
		var result interface{}
		err := hc.manager.DB().QueryRowContext(ctx, query).Scan(&result)
		duration := time.Since(start)
		totalDuration += duration

		queryResults[name] = map[string]interface{}{
			"duration_ms": duration.Milliseconds(),
			"success":     err == nil,
		}

		if err != nil {
			hc.logger.Error("Performance test query failed",
				zap.String("query", name),
				zap.Error(err))
			return fmt.Errorf("performance query '%s' failed: %w", name, err)
		}

		if duration > hc.slowQueryWarning {
			status.Details[name+"_warning"] = "Slow query performance"
			status.Summary.Warnings++
		}
	}

	status.Details["query_performance"] = queryResults
	status.Details["avg_query_duration"] = totalDuration / time.Duration(len(queries))

	return nil
}

// checkTableAccess verifies the critical tables are reachable
func (hc *HealthChecker) checkTableAccess(ctx context.Context, status *HealthStatus) error {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return fmt.Errorf("database connection is not active")
	}
	if atomic.LoadInt32(&hc.isShutdown) == 1 {
		return fmt.Errorf("health checker is shutting down")
	}

	tableResults := make(map[string]interface{})

	for _, table := range hc.criticalTables {
		if atomic.LoadInt32(&hc.isActive) == 0 {
			return fmt.Errorf("database became inactive during table checks")
		}

		start := time.Now()
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s LIMIT 1", table)

		var count int
		err := hc.manager.DB().QueryRowContext(ctx, query).Scan(&count)
		duration := time.Since(start)

		tableResults[table] = map[string]interface{}{
			"accessible":  err == nil,
			"duration_ms": duration.Milliseconds(),
		}

		if err != nil {
			hc.logger.Error("Failed to access critical table",
				zap.String("table", table),
				zap.Error(err))
			status.Summary.CriticalIssues++
			return fmt.Errorf("cannot access table %s: %w", table, err)
		}

		if duration > 500*time.Millisecond {
			status.Details[table+"_warning"] = "Slow table access"
			status.Summary.Warnings++
		}
	}

	status.Details["table_access"] = tableResults
	return nil
}

// determineOverallStatus maps issues to the overall status
func (hc *HealthChecker) determineOverallStatus(status *HealthStatus) string {
	if status.Summary.CriticalIssues > 0 || len(status.Errors) > 0 {
		return StatusUnhealthy
	}
	if status.Summary.Warnings > 0 {
		return StatusDegraded
	}
	if status.ResponseTime > 1*time.Second {
		return StatusDegraded
	}
	return StatusHealthy
}

func (hc *HealthChecker) updateHealthSummary(status *HealthStatus) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	now := time.Now()

	if status.Status == StatusHealthy {
		status.Summary.LastHealthy = &now

		if hc.status == nil || hc.status.Status != StatusHealthy {
			status.Summary.UpSince = &now
		} else if hc.status.Summary != nil && hc.status.Summary.UpSince != nil {
			status.Summary.UpSince = hc.status.Summary.UpSince
		}
	} else {
		if hc.status != nil && hc.status.Summary != nil && hc.status.Summary.LastHealthy != nil {
			status.Summary.LastHealthy = hc.status.Summary.LastHealthy
		}
	}
}

func (hc *HealthChecker) cacheHealthResult(status *HealthStatus) {
	hc.mu.Lock()
	hc.status = status
	hc.lastCheck = time.Now()
	hc.mu.Unlock()
}

func (hc *HealthChecker) recordHealthCheck(status *HealthStatus) {
	record := HealthCheckRecord{
		Timestamp: status.Timestamp,
		Status:    status.Status,
		Duration:  status.ResponseTime,
		Issues:    status.Summary.CriticalIssues + status.Summary.Warnings,
	}

	hc.history.mu.Lock()
	hc.history.checks = append(hc.history.checks, record)

	// Keep only last 100 records
	if len(hc.history.checks) > 100 {
		hc.history.checks = hc.history.checks[len(hc.history.checks)-100:]
	}
	hc.history.mu.Unlock()
}

func (hc *HealthChecker) handleHealthAlert(status *HealthStatus) {
	if status.Status == StatusUnhealthy {
		count := atomic.AddInt32(&hc.alerting.consecutiveFailures, 1)

		if count >= hc.alerting.alertThreshold {
			now := time.Now()
			if now.Sub(hc.alerting.lastAlertSent) > hc.alerting.cooldownPeriod {
				hc.sendHealthAlert(status, count)
				hc.alerting.lastAlertSent = now
			}
		}
	} else {
		atomic.StoreInt32(&hc.alerting.consecutiveFailures, 0)
	}
}

func (hc *HealthChecker) sendHealthAlert(status *HealthStatus, consecutiveFailures int32) {
	hc.logger.Error("Database health alert",
		zap.String("status", status.Status),
		zap.Int32("consecutive_failures", consecutiveFailures),
		zap.Strings("errors", status.Errors),
		zap.Duration("response_time", status.ResponseTime),
		zap.Int("critical_issues", status.Summary.CriticalIssues),
		zap.Int("warnings", status.Summary.Warnings),
	)
}

// startPeriodicChecks runs health checks in the background
func (hc *HealthChecker) startPeriodicChecks() {
	defer close(hc.stopped)

	hc.logger.Info("Starting background health checks",
		zap.Duration("interval", hc.checkInterval))

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return
			}
			if atomic.LoadInt32(&hc.isShutdown) == 1 {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), hc.timeoutDuration)
			status := hc.Check(ctx)
			cancel()

			hc.mu.RLock()
			var lastStatus string
			if hc.status != nil && len(hc.history.checks) > 1 {
				lastIdx := len(hc.history.checks) - 2
				lastStatus = hc.history.checks[lastIdx].Status
			}
			hc.mu.RUnlock()

			if status.Status != lastStatus && lastStatus != "" {
				hc.logger.Info("Database health status changed",
					zap.String("from", lastStatus),
					zap.String("to", status.Status),
					zap.Duration("response_time", status.ResponseTime),
					zap.Int("issues", status.Summary.CriticalIssues+status.Summary.Warnings),
				)
			}

		case <-hc.stopCh:
			return
		}
	}
}

// Stop gracefully stops the health checker
func (hc *HealthChecker) Stop() {
	atomic.StoreInt32(&hc.isShutdown, 1)
	atomic.StoreInt32(&hc.isActive, 0)

	close(hc.stopCh)

	select {
	case <-hc.stopped:
		hc.logger.Info("Health checker stopped gracefully")
	case <-time.After(5 * time.Second):
		hc.logger.Warn("Health checker stop timeout")
	}
}

// StartMonitoring begins background health monitoring (call after DB is ready)
func (hc *HealthChecker) StartMonitoring() {
	if atomic.LoadInt32(&hc.isActive) == 1 {
		go hc.startPeriodicChecks()
		hc.logger.Info("Background health monitoring started")
	}
}

// GetLastStatus returns the last cached health status
func (hc *HealthChecker) GetLastStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.status == nil {
		return &HealthStatus{
			Status:    StatusStarting,
			Timestamp: time.Now(),
			Errors:    []string{"No health check performed yet"},
			Details:   make(map[string]interface{}),
			Summary:   &HealthSummary{},
		}
	}

	return hc.status
}

// IsHealthy returns true if the database is healthy
func (hc *HealthChecker) IsHealthy() bool {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return false
	}

	status := hc.GetLastStatus()
	return status.Status == StatusHealthy
}

// WaitForHealthy waits for the database to become healthy
func (hc *HealthChecker) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database to become healthy: %w", ctx.Err())

		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return fmt.Errorf("health checker is not active")
			}

			if hc.GetLastStatus().Status == StatusHealthy {
				return nil
			}
		}
	}
}

// GetHealthHistory returns a copy of recent health check records
func (hc *HealthChecker) GetHealthHistory() []HealthCheckRecord {
	hc.history.mu.Lock()
	defer hc.history.mu.Unlock()

	result := make([]HealthCheckRecord, len(hc.history.checks))
	copy(result, hc.history.checks)
	return result
}

// GetHealthMetrics aggregates the recorded history
func (hc *HealthChecker) GetHealthMetrics() map[string]interface{} {
	history := hc.GetHealthHistory()
	if len(history) == 0 {
		return map[string]interface{}{"status": "no_data"}
	}

	var totalDuration time.Duration
	var healthyCount, degradedCount, unhealthyCount int

	for _, record := range history {
		totalDuration += record.Duration
		switch record.Status {
		case StatusHealthy:
			healthyCount++
		case StatusDegraded:
			degradedCount++
		case StatusUnhealthy:
			unhealthyCount++
		}
	}

	avgDuration := totalDuration / time.Duration(len(history))

	return map[string]interface{}{
		"total_checks":         len(history),
		"healthy_checks":       healthyCount,
		"degraded_checks":      degradedCount,
		"unhealthy_checks":     unhealthyCount,
		"avg_response_time_ms": avgDuration.Milliseconds(),
		"health_percentage":    float64(healthyCount) / float64(len(history)) * 100,
		"consecutive_failures": atomic.LoadInt32(&hc.alerting.consecutiveFailures),
	}
}
