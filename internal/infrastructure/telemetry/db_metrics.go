package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Database metric attributes
var (
	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
	AttrDBFailed    = attribute.Key("db.failed")
)

// DBMetricsConfig configures query and connection pool metrics
type DBMetricsConfig struct {
	Enabled bool
	// SlowQueryThreshold defaults to 200ms
	SlowQueryThreshold time.Duration
	// PoolStatsInterval defaults to 15s
	PoolStatsInterval time.Duration
}

// DefaultDBMetricsConfig returns the defaults with metrics enabled
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
		PoolStatsInterval:  15 * time.Second,
	}
}

// DBMetrics counts and times the queries behind the ledger repositories and
// samples the connection pool. It is also the gorm plugin that feeds itself.
type DBMetrics struct {
	queries     *Counter
	latency     *Histogram
	slowQueries *Counter
	pool        *Gauge
	poolMax     *Gauge

	config DBMetricsConfig
	logger *zap.Logger

	mu      sync.Mutex
	sqlDB   *sql.DB
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewDBMetrics registers the database instruments on meter
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if cfg.PoolStatsInterval <= 0 {
		cfg.PoolStatsInterval = 15 * time.Second
	}

	m := &DBMetrics{config: cfg, logger: logger}
	var err error
	if m.queries, err = NewCounter(meter, "db_query_total",
		"Database statements by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueries, err = NewCounter(meter, "db_slow_query_total",
		"Statements slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	if m.pool, err = NewGauge(meter, "db_pool_connections",
		"Pool connections by state", "{connection}"); err != nil {
		return nil, err
	}
	if m.poolMax, err = NewGauge(meter, "db_pool_connections_max",
		"Configured pool size", "{connection}"); err != nil {
		return nil, err
	}
	return m, nil
}

// SetSQLDB selects the pool StartPoolStatsCollection samples
func (m *DBMetrics) SetSQLDB(db *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqlDB = db
}

// StartPoolStatsCollection samples the pool immediately and then every
// PoolStatsInterval until ctx ends or Stop is called
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sqlDB == nil {
		m.logger.Warn("Pool stats not collected: no sql.DB set")
		return
	}
	if m.cancel != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.stopped = make(chan struct{})
	go m.watchPool(ctx, m.sqlDB, m.stopped)

	m.logger.Info("Collecting connection pool stats", zap.Duration("interval", m.config.PoolStatsInterval))
}

func (m *DBMetrics) watchPool(ctx context.Context, db *sql.DB, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.config.PoolStatsInterval)
	defer ticker.Stop()
	for {
		m.recordPool(ctx, db.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// recordPool writes one pool sample. Open is idle plus in use.
func (m *DBMetrics) recordPool(ctx context.Context, stats sql.DBStats) {
	m.poolMax.Record(ctx, int64(stats.MaxOpenConnections))
	m.pool.Record(ctx, int64(stats.Idle), AttrDBState.String("idle"))
	m.pool.Record(ctx, int64(stats.InUse), AttrDBState.String("in_use"))
	m.pool.Record(ctx, int64(stats.OpenConnections), AttrDBState.String("open"))
}

// Stop ends pool sampling and waits for the sampler. Safe to call twice.
func (m *DBMetrics) Stop() {
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

// RecordQuery records one finished statement. A missing row is a lookup
// result and does not count as a failure.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, d time.Duration, err error) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	if table == "" {
		table = "unknown"
	}
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)

	m.queries.Inc(ctx, AttrDBOperation.String(operation), AttrDBTable.String(table), AttrDBFailed.Bool(failed))
	m.latency.RecordDuration(ctx, d, AttrDBOperation.String(operation))
	if d > m.config.SlowQueryThreshold {
		m.slowQueries.Inc(ctx, AttrDBTable.String(table))
	}
}

// Name implements gorm.Plugin
func (m *DBMetrics) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin
func (m *DBMetrics) Initialize(db *gorm.DB) error {
	for _, h := range gormHooks(db) {
		if err := h.before.Register("db_metrics:before_"+h.op, markQueryStart); err != nil {
			return err
		}
		if err := h.after.Register("db_metrics:after_"+h.op, m.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

var gormOperations = map[string]string{
	"create": "INSERT",
	"query":  "SELECT",
	"update": "UPDATE",
	"delete": "DELETE",
}

// after names create/query/update/delete by chain; row and raw statements
// are classified from their SQL
func (m *DBMetrics) after(chain string) func(*gorm.DB) {
	op, known := gormOperations[chain]
	return func(db *gorm.DB) {
		operation := op
		if !known {
			operation = sqlVerb(db.Statement.SQL.String())
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, operation, db.Statement.Table, queryElapsed(ctx), db.Error)
	}
}

// NewDBMetricsPlugin returns metrics as a gorm plugin
func NewDBMetricsPlugin(metrics *DBMetrics, _ *zap.Logger) gorm.Plugin {
	return metrics
}

func sqlVerb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "OTHER"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return verb
	}
	return "OTHER"
}

// RegisterDBMetrics installs the metrics plugin on db when metrics are
// exported. It returns nil when there is nothing to record into.
func RegisterDBMetrics(db *gorm.DB, provider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || provider == nil || !provider.IsEnabled() {
		return nil, nil
	}

	metrics, err := NewDBMetrics(provider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics.SetSQLDB(sqlDB)
	if err := db.Use(metrics); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", metrics.config.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", metrics.config.PoolStatsInterval),
	)
	return metrics, nil
}
