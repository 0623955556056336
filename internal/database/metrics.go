package database

import (
	"database/sql"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Metrics tracks query volume, latency and errors, broken down by the
// domain area the query serves. The badge pipeline classes matter most
// operationally: the completion watcher and recalculation sweeps are the
// heaviest writers, and a latency regression there shows up as delayed
// badge notifications before anything else.
type Metrics struct {
	db     *sql.DB
	logger *zap.Logger

	queryCount     int64
	queryDuration  int64 // nanoseconds
	errorCount     int64
	slowQueryCount int64

	slowQueryThreshold time.Duration

	mu      sync.RWMutex
	classes map[string]*classCounters

	stopCh   chan struct{}
	stopOnce sync.Once
}

// classCounters accumulates per-class totals. Not safe for concurrent use
// on its own; Metrics.mu guards the map and its values.
type classCounters struct {
	queryCount    int64
	errorCount    int64
	slowQueries   int64
	totalDuration time.Duration
}

// ClassMetrics is the exported per-class view
type ClassMetrics struct {
	Class       string        `json:"class"`
	QueryCount  int64         `json:"query_count"`
	ErrorCount  int64         `json:"error_count"`
	SlowQueries int64         `json:"slow_queries"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// MetricsSnapshot provides a point-in-time view of metrics
type MetricsSnapshot struct {
	QueryCount       int64          `json:"query_count"`
	ErrorCount       int64          `json:"error_count"`
	SlowQueryCount   int64          `json:"slow_query_count"`
	AvgQueryDuration time.Duration  `json:"avg_query_duration"`
	DBStats          sql.DBStats    `json:"db_stats"`
	PerClass         []ClassMetrics `json:"per_class"`
	Timestamp        time.Time      `json:"timestamp"`
}

// queryClasses maps a table token to its reporting class, checked in
// order so joins report under the most specific table. badge_progress
// must precede badges: the progress queries join the catalog.
var queryClasses = []struct {
	token string
	class string
}{
	{"badge_progress", "badge_progress"},
	{"badges", "badge_catalog"},
	{"notifications", "notifications"},
	{"cooking_sessions", "sessions"},
	{"recipes", "recipes"},
	{"users", "users"},
}

// NewMetrics creates a new metrics collector and starts its periodic
// summary logger
func NewMetrics(db *sql.DB, logger *zap.Logger) *Metrics {
	m := &Metrics{
		db:                 db,
		logger:             logger,
		slowQueryThreshold: 100 * time.Millisecond,
		classes:            make(map[string]*classCounters),
		stopCh:             make(chan struct{}),
	}

	go m.logPeriodicSummary()

	return m
}

// classifyQuery derives the reporting class from the SQL text. A query
// touching none of the known tables lands in "other"; transaction
// control with no statement text lands in "tx".
func classifyQuery(query string) string {
	if query == "" {
		return "tx"
	}
	lowered := strings.ToLower(query)
	for _, qc := range queryClasses {
		if strings.Contains(lowered, qc.token) {
			return qc.class
		}
	}
	return "other"
}

// RecordQuery records one executed statement under its derived class
func (m *Metrics) RecordQuery(query string, duration time.Duration, err error) {
	atomic.AddInt64(&m.queryCount, 1)
	atomic.AddInt64(&m.queryDuration, int64(duration))

	slow := duration > m.slowQueryThreshold
	if err != nil {
		atomic.AddInt64(&m.errorCount, 1)
	}
	if slow {
		atomic.AddInt64(&m.slowQueryCount, 1)
	}

	class := classifyQuery(query)

	m.mu.Lock()
	counters, ok := m.classes[class]
	if !ok {
		counters = &classCounters{}
		m.classes[class] = counters
	}
	counters.queryCount++
	counters.totalDuration += duration
	if err != nil {
		counters.errorCount++
	}
	if slow {
		counters.slowQueries++
	}
	m.mu.Unlock()
}

// Snapshot returns the current totals with the per-class breakdown
// sorted by query volume
func (m *Metrics) Snapshot() *MetricsSnapshot {
	queryCount := atomic.LoadInt64(&m.queryCount)
	totalDuration := atomic.LoadInt64(&m.queryDuration)

	var avgDuration time.Duration
	if queryCount > 0 {
		avgDuration = time.Duration(totalDuration / queryCount)
	}

	m.mu.RLock()
	perClass := make([]ClassMetrics, 0, len(m.classes))
	for class, counters := range m.classes {
		cm := ClassMetrics{
			Class:       class,
			QueryCount:  counters.queryCount,
			ErrorCount:  counters.errorCount,
			SlowQueries: counters.slowQueries,
		}
		if counters.queryCount > 0 {
			cm.AvgDuration = counters.totalDuration / time.Duration(counters.queryCount)
		}
		perClass = append(perClass, cm)
	}
	m.mu.RUnlock()

	sort.Slice(perClass, func(i, j int) bool {
		if perClass[i].QueryCount != perClass[j].QueryCount {
			return perClass[i].QueryCount > perClass[j].QueryCount
		}
		return perClass[i].Class < perClass[j].Class
	})

	return &MetricsSnapshot{
		QueryCount:       queryCount,
		ErrorCount:       atomic.LoadInt64(&m.errorCount),
		SlowQueryCount:   atomic.LoadInt64(&m.slowQueryCount),
		AvgQueryDuration: avgDuration,
		DBStats:          m.db.Stats(),
		PerClass:         perClass,
		Timestamp:        time.Now(),
	}
}

// logPeriodicSummary logs an hourly digest of the per-class totals. The
// badge pipeline classes are pulled out explicitly so the digest line is
// greppable during incident review.
func (m *Metrics) logPeriodicSummary() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snapshot := m.Snapshot()

			var progressQueries, catalogQueries int64
			for _, cm := range snapshot.PerClass {
				switch cm.Class {
				case "badge_progress":
					progressQueries = cm.QueryCount
				case "badge_catalog":
					catalogQueries = cm.QueryCount
				}
			}

			m.logger.Info("Database query summary",
				zap.Int64("queries", snapshot.QueryCount),
				zap.Int64("errors", snapshot.ErrorCount),
				zap.Int64("slow_queries", snapshot.SlowQueryCount),
				zap.Duration("avg_duration", snapshot.AvgQueryDuration),
				zap.Int64("badge_progress_queries", progressQueries),
				zap.Int64("badge_catalog_queries", catalogQueries),
				zap.Int("open_connections", snapshot.DBStats.OpenConnections),
				zap.Int("idle_connections", snapshot.DBStats.Idle),
			)
		case <-m.stopCh:
			return
		}
	}
}

// Stop stops the periodic summary logger
func (m *Metrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.queryCount, 0)
	atomic.StoreInt64(&m.queryDuration, 0)
	atomic.StoreInt64(&m.errorCount, 0)
	atomic.StoreInt64(&m.slowQueryCount, 0)

	m.mu.Lock()
	m.classes = make(map[string]*classCounters)
	m.mu.Unlock()
}
