// Package config loads the ledger service settings from config.toml and
// LEDGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Printing  PrintingConfig  `mapstructure:"printing"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// LogConfig selects level (debug..error), format (json or console) and
// output (stdout, stderr or a file path)
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig describes the ledger database. Path is only read for
// sqlite; ":memory:" gives a throwaway database.
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// RedisConfig points at the shared Redis. Disabled means receipt locks and
// idempotency keys stay in process memory, which only holds for one replica.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig validates operator bearer tokens
type JWTConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	Issuer  string `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	MaxBodySize       int64         `mapstructure:"max_body_size"`
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	CORSAllowOrigins  []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods  []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders  []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// LedgerConfig holds the allocation settings. Every receipt and payment must
// be in Currency.
type LedgerConfig struct {
	Currency       string        `mapstructure:"currency"`
	Locale         string        `mapstructure:"locale"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`    // wait for a receipt lock
	LockTTL        time.Duration `mapstructure:"lock_ttl"`        // expiry of a lock left by a crashed process
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"` // replay window of a keyed POST
}

type SchedulerConfig struct {
	Enabled                bool          `mapstructure:"enabled"`
	MaxConcurrentJobs      int           `mapstructure:"max_concurrent_jobs"`
	JobTimeout             time.Duration `mapstructure:"job_timeout"`
	RetryAttempts          int           `mapstructure:"retry_attempts"`
	RetryDelay             time.Duration `mapstructure:"retry_delay"`
	RepairInterval         time.Duration `mapstructure:"repair_interval"`
	OverdueRefreshInterval time.Duration `mapstructure:"overdue_refresh_interval"`
	DailyArchiveTime       string        `mapstructure:"daily_archive_time"` // HH:MM, UTC
}

// DailyArchiveAt returns hour and minute of the daily cash-cut archive
func (s SchedulerConfig) DailyArchiveAt() (hour, minute int) {
	t, err := time.Parse("15:04", s.DailyArchiveTime)
	if err != nil {
		return 6, 0
	}
	return t.Hour(), t.Minute()
}

// StorageConfig is where archived cash cuts go: an S3 bucket or a local
// directory
type StorageConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Driver          string `mapstructure:"driver"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	LocalDir        string `mapstructure:"local_dir"`
}

// PrintingConfig controls receipt PDFs. An empty ChromeURL launches a local
// headless Chrome.
type PrintingConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	ChromeURL string        `mapstructure:"chrome_url"`
	NoSandbox bool          `mapstructure:"no_sandbox"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PaperSize string        `mapstructure:"paper_size"`
	Issuer    string        `mapstructure:"issuer"`
}

// SwaggerConfig guards /swagger. An empty AllowedIPs admits every address.
type SwaggerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RequireAuth bool     `mapstructure:"require_auth"`
	AllowedIPs  []string `mapstructure:"allowed_ips"`
}

// TelemetryConfig configures OTLP export. Enabled turns on traces; metrics
// and logs have their own switches.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	Insecure          bool          `mapstructure:"insecure"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // statements with values in spans
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// ProfilingConfig configures the Pyroscope agent
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
	AuthUser      string `mapstructure:"auth_user"`
	AuthToken     string `mapstructure:"auth_token"`
	// ProfileTypes lists profile names such as cpu or mutex_duration; empty
	// collects the default set
	ProfileTypes []string `mapstructure:"profile_types"`
}

// defaults registers every key, so env overrides reach Unmarshal even when
// config.toml does not mention them
var defaults = map[string]any{
	"app.name": "erp-ledger",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             DriverPostgres,
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "ledger",
	"database.sslmode":            "disable",
	"database.path":               "ledger.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.enabled": false,
	"jwt.secret":  "",
	"jwt.issuer":  "erp-backend",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":        15 * time.Second,
	"http.write_timeout":       15 * time.Second,
	"http.idle_timeout":        time.Minute,
	"http.max_header_bytes":    1 << 20,
	"http.max_body_size":       int64(1 << 20),
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 100,
	"http.rate_limit_window":   time.Minute,
	// no origin default: cross-origin calls stay blocked until configured
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "DELETE", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"},
	"http.trusted_proxies":    []string{},

	"ledger.currency":        "MXN",
	"ledger.locale":          "es-MX",
	"ledger.lock_timeout":    3 * time.Second,
	"ledger.lock_ttl":        30 * time.Second,
	"ledger.idempotency_ttl": 24 * time.Hour,

	"scheduler.enabled":                  false,
	"scheduler.max_concurrent_jobs":      2,
	"scheduler.job_timeout":              10 * time.Minute,
	"scheduler.retry_attempts":           3,
	"scheduler.retry_delay":              time.Minute,
	"scheduler.repair_interval":          time.Hour,
	"scheduler.overdue_refresh_interval": 15 * time.Minute,
	"scheduler.daily_archive_time":       "06:00",

	"storage.enabled":           false,
	"storage.driver":            "local",
	"storage.endpoint":          "",
	"storage.region":            "us-east-1",
	"storage.bucket":            "",
	"storage.access_key_id":     "",
	"storage.secret_access_key": "",
	"storage.use_path_style":    false,
	"storage.local_dir":         "./archive",

	"printing.enabled":    false,
	"printing.chrome_url": "",
	"printing.no_sandbox": false,
	"printing.timeout":    30 * time.Second,
	"printing.paper_size": "A4",
	"printing.issuer":     "",

	"swagger.enabled":      false,
	"swagger.require_auth": false,
	"swagger.allowed_ips":  []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "erp-ledger",
	"telemetry.insecure":                false,
	"telemetry.metrics_enabled":         false,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.logs_enabled":            false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"profiling.enabled":        false,
	"profiling.server_address": "http://localhost:4040",
	"profiling.auth_user":      "",
	"profiling.auth_token":     "",
	"profiling.profile_types":  []string{},
}

// Load reads config.toml from ".", "./ledger" or "/app" when present, then
// applies LEDGER_* environment overrides (LEDGER_DATABASE_PASSWORD sets
// database.password) on top of the built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, dir := range []string{".", "./ledger", "/app"} {
		v.AddConfigPath(dir)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every invalid setting at once
func (c *Config) validate() error {
	var errs []error
	check := func(failed bool, format string, args ...any) {
		if failed {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.Driver != DriverPostgres && db.Driver != DriverSQLite,
		"database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, db.Driver)
	check(db.MaxOpenConns <= 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns < 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns > db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	led := c.Ledger
	check(len(led.Currency) != 3, "ledger.currency must be an ISO 4217 code, got %q", led.Currency)
	check(led.LockTimeout < 0 || led.LockTTL < 0, "ledger lock durations cannot be negative")
	check(c.Redis.Enabled && led.LockTTL <= led.LockTimeout,
		"ledger.lock_ttl (%s) must exceed ledger.lock_timeout (%s)", led.LockTTL, led.LockTimeout)

	_, err := time.Parse("15:04", c.Scheduler.DailyArchiveTime)
	check(err != nil, "scheduler.daily_archive_time must be HH:MM, got %q", c.Scheduler.DailyArchiveTime)

	if st := c.Storage; st.Enabled {
		check(st.Driver != "s3" && st.Driver != "local", "storage.driver must be \"s3\" or \"local\", got %q", st.Driver)
		check(st.Driver == "s3" && st.Bucket == "", "storage.bucket is required for the s3 driver")
	}
	check(c.Printing.Enabled && !slices.Contains([]string{"A4", "LETTER", "THERMAL_80MM"}, strings.ToUpper(c.Printing.PaperSize)),
		"printing.paper_size must be A4, LETTER or THERMAL_80MM, got %q", c.Printing.PaperSize)
	check(c.JWT.Enabled && c.JWT.Secret == "", "jwt.secret is required when jwt is enabled")
	check(c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)

	if c.App.Env == "production" {
		check(!c.JWT.Enabled, "jwt must be enabled in production")
		check(len(c.JWT.Secret) < 32, "jwt.secret must be at least 32 characters in production")
		check(db.Driver != DriverPostgres, "database.driver must be %q in production", DriverPostgres)
		check(db.Password == "", "database.password is required in production")
		check(db.SSLMode == "disable", "database.sslmode cannot be 'disable' in production")
		check(slices.Contains(c.HTTP.CORSAllowOrigins, "*"),
			"http.cors_allow_origins cannot be '*' in production")
		check(c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0,
			"swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		check(c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}
	return errors.Join(errs...)
}

// DSN is the connection string for the configured driver: a postgres URL
// with escaped credentials, or the sqlite file path.
func (d *DatabaseConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return d.Path
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
