package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func balanceQuery() (string, int64) {
	return "UPDATE receipts SET balance = 250.00, version = 3 WHERE id = 'r-1' AND version = 2", 1
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		elapsed   time.Duration
		err       error
		wantMsg   string
		wantLevel zapcore.Level
	}{
		{"normal query at info", gormlogger.Info, 0, nil, "SQL Query", zapcore.DebugLevel},
		{"slow query", gormlogger.Warn, 300 * time.Millisecond, nil, "Slow SQL", zapcore.WarnLevel},
		{"error", gormlogger.Error, 0, errors.New("deadlock detected"), "SQL Error", zapcore.ErrorLevel},
		{"silent", gormlogger.Silent, 0, errors.New("ignored"), "", 0},
		{"record not found is ignored", gormlogger.Info, 0, gormlogger.ErrRecordNotFound, "", 0},
		{"normal query below info", gormlogger.Warn, 0, nil, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			gl := NewGormLogger(zap.New(core), tt.level)

			gl.Trace(context.Background(), time.Now().Add(-tt.elapsed), balanceQuery, tt.err)

			if tt.wantMsg == "" {
				assert.Empty(t, recorded.All())
				return
			}
			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, "gorm", logs[0].LoggerName)
			assert.EqualValues(t, 1, logs[0].ContextMap()["rows"])
		})
	}
}

func TestGormLogger_TraceCarriesRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")
	ctx, _ = WithOperatorID(ctx, zap.NewNop(), "op-1")
	gl.Trace(ctx, time.Now(), balanceQuery, nil)

	require.Len(t, recorded.All(), 1)
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "op-1", fields["operator_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestGormLogger_SlowQueryCarriesThreshold(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn)

	gl.Trace(context.Background(), time.Now().Add(-time.Second), balanceQuery, nil)

	require.Len(t, recorded.All(), 1)
	assert.Equal(t, 200*time.Millisecond, recorded.All()[0].ContextMap()["threshold"])
}

func TestGormLogger_Options(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
	)

	gl.Trace(context.Background(), time.Now().Add(-300*time.Millisecond), balanceQuery, nil)
	assert.Empty(t, recorded.All(), "300ms is below the configured threshold")

	gl.Trace(context.Background(), time.Now(), balanceQuery, gormlogger.ErrRecordNotFound)
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "SQL Error", recorded.All()[0].Message)
}

func TestGormLogger_LogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Silent)

	verbose := gl.LogMode(gormlogger.Info)
	verbose.Info(context.Background(), "migrated %d tables", 4)
	verbose.Warn(context.Background(), "slow migration")
	verbose.Error(context.Background(), "failed")
	gl.Info(context.Background(), "still silent")

	require.Len(t, recorded.All(), 3)
	assert.Equal(t, "migrated 4 tables", recorded.All()[0].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"unknown": gormlogger.Warn,
		"":        gormlogger.Warn,
	}
	for level, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(level), level)
	}
}
