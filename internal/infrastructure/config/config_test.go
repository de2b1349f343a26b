package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "erp-ledger", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "ledger", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "MXN", cfg.Ledger.Currency)
		assert.Equal(t, "es-MX", cfg.Ledger.Locale)
		assert.Equal(t, 3*time.Second, cfg.Ledger.LockTimeout)
		assert.Equal(t, 24*time.Hour, cfg.Ledger.IdempotencyTTL)
		assert.Equal(t, time.Hour, cfg.Scheduler.RepairInterval)
		assert.Equal(t, "local", cfg.Storage.Driver)
		assert.False(t, cfg.Printing.Enabled)
		assert.Equal(t, "A4", cfg.Printing.PaperSize)
		assert.Equal(t, 30*time.Second, cfg.Printing.Timeout)
	})

	t.Run("loads values from environment variables with LEDGER prefix", func(t *testing.T) {
		t.Setenv("LEDGER_APP_PORT", "9000")
		t.Setenv("LEDGER_DATABASE_DRIVER", "sqlite")
		t.Setenv("LEDGER_DATABASE_PATH", ":memory:")
		t.Setenv("LEDGER_REDIS_ENABLED", "true")
		t.Setenv("LEDGER_REDIS_HOST", "cache.local")
		t.Setenv("LEDGER_LEDGER_LOCK_TIMEOUT", "500ms")
		t.Setenv("LEDGER_LEDGER_LOCK_TTL", "10s")
		t.Setenv("LEDGER_SCHEDULER_DAILY_ARCHIVE_TIME", "23:30")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, DriverSQLite, cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.DSN())
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.Equal(t, 500*time.Millisecond, cfg.Ledger.LockTimeout)
		hour, minute := cfg.Scheduler.DailyArchiveAt()
		assert.Equal(t, 23, hour)
		assert.Equal(t, 30, minute)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("LEDGER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("LEDGER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		t.Setenv("LEDGER_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects a currency that is not a three letter code", func(t *testing.T) {
		t.Setenv("LEDGER_LEDGER_CURRENCY", "PESOS")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ledger.currency")
	})

	t.Run("lock TTL must outlive the lock timeout with redis", func(t *testing.T) {
		t.Setenv("LEDGER_REDIS_ENABLED", "true")
		t.Setenv("LEDGER_LEDGER_LOCK_TIMEOUT", "5s")
		t.Setenv("LEDGER_LEDGER_LOCK_TTL", "2s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock_ttl")
	})

	t.Run("rejects malformed archive time", func(t *testing.T) {
		t.Setenv("LEDGER_SCHEDULER_DAILY_ARCHIVE_TIME", "6am")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "daily_archive_time")
	})

	t.Run("s3 storage requires a bucket", func(t *testing.T) {
		t.Setenv("LEDGER_STORAGE_ENABLED", "true")
		t.Setenv("LEDGER_STORAGE_DRIVER", "s3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("printing accepts the roll paper", func(t *testing.T) {
		t.Setenv("LEDGER_PRINTING_ENABLED", "true")
		t.Setenv("LEDGER_PRINTING_PAPER_SIZE", "thermal_80mm")
		t.Setenv("LEDGER_PRINTING_CHROME_URL", "ws://chrome:9222")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "ws://chrome:9222", cfg.Printing.ChromeURL)
	})

	t.Run("printing rejects unknown paper", func(t *testing.T) {
		t.Setenv("LEDGER_PRINTING_ENABLED", "true")
		t.Setenv("LEDGER_PRINTING_PAPER_SIZE", "A3")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "printing.paper_size")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("LEDGER_APP_ENV", "production")
		t.Setenv("LEDGER_JWT_ENABLED", "true")
		t.Setenv("LEDGER_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("LEDGER_DATABASE_PASSWORD", "secure-password")
		t.Setenv("LEDGER_DATABASE_SSLMODE", "require")
		t.Setenv("LEDGER_SWAGGER_ENABLED", "false")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"requires jwt", map[string]string{"LEDGER_JWT_ENABLED": "false"}, "jwt must be enabled in production"},
		{"short jwt secret", map[string]string{"LEDGER_JWT_SECRET": "short-secret"}, "at least 32 characters"},
		{"missing database password", map[string]string{"LEDGER_DATABASE_PASSWORD": ""}, "database.password is required"},
		{"ssl disabled", map[string]string{"LEDGER_DATABASE_SSLMODE": "disable"}, "database.sslmode cannot be 'disable'"},
		{"sqlite in production", map[string]string{"LEDGER_DATABASE_DRIVER": "sqlite"}, "must be \"postgres\" in production"},
		{"unprotected swagger", map[string]string{"LEDGER_SWAGGER_ENABLED": "true"}, "swagger endpoint must be disabled"},
		{"full sql in traces", map[string]string{"LEDGER_TELEMETRY_DB_LOG_FULL_SQL": "true"}, "db_log_full_sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setValidProductionBase(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("passes with swagger enabled and require_auth in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("LEDGER_SWAGGER_ENABLED", "true")
		t.Setenv("LEDGER_SWAGGER_REQUIRE_AUTH", "true")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Swagger.RequireAuth)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite DSN is the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverSQLite, Path: "/var/lib/ledger.db"}
		assert.Equal(t, "/var/lib/ledger.db", cfg.DSN())
	})
}
