package logger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGorm(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func sqlFn(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func tillContext() context.Context {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTenantID(ctx, "tenant-1")
	ctx = WithBranchID(ctx, "branch-col")
	return WithUserID(ctx, "cashier-7")
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := tillContext()

	t.Run("error carries the till scope", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), errors.New("conn reset"))
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "SQL error", entry.Message)
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "tenant-1", fields["tenant_id"])
		assert.Equal(t, "branch-col", fields["branch_id"])
		assert.Equal(t, "cashier-7", fields["user_id"])
		assert.Equal(t, "req-1", fields["request_id"])
	})

	t.Run("lock conflict is a warning", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn)
		err := errors.New(`ERROR: could not obtain lock on row in relation "stock_items" (SQLSTATE 55P03)`)
		gl.Trace(ctx, time.Now(), sqlFn(`SELECT * FROM "stock_items" FOR UPDATE NOWAIT`, 0), err)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL lock conflict", logs.All()[0].Message)
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("record not found ignored", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("record not found logged when asked", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT pg_sleep(1)", 1), nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "Slow SQL", logs.All()[0].Message)
	})

	t.Run("zero threshold disables slow logging", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn, WithSlowThreshold(0))
		gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn("SELECT pg_sleep(1)", 1), nil)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("silent", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Silent)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), errors.New("x"))
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("normal query at info", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Info)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL", logs.All()[0].Message)
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("normal query skipped below info", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Warn)
		gl.Trace(ctx, time.Now(), sqlFn("SELECT 1", 1), nil)
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("long sql is truncated", func(t *testing.T) {
		gl, logs := newObservedGorm(gormlogger.Info, WithMaxSQLLength(16))
		gl.Trace(ctx, time.Now(), sqlFn(`INSERT INTO "catalog_variants" `+strings.Repeat("(?),", 500), 500), nil)
		sql := logs.All()[0].ContextMap()["sql"].(string)
		assert.True(t, strings.HasSuffix(sql, "...(truncated)"))
		assert.Len(t, sql, 16+len("...(truncated)"))
	})
}

func TestGormLogger_PrintfMethodsCarryScope(t *testing.T) {
	gl, logs := newObservedGorm(gormlogger.Info)
	gl.Warn(tillContext(), "replaced %d rows", 3)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "replaced 3 rows", logs.All()[0].Message)
	assert.Equal(t, "branch-col", logs.All()[0].ContextMap()["branch_id"])
}

func TestGormLogger_LogMode(t *testing.T) {
	gl, _ := newObservedGorm(gormlogger.Warn)
	changed := gl.LogMode(gormlogger.Info).(*GormLogger)
	assert.Equal(t, gormlogger.Info, changed.logLevel)
	assert.Equal(t, gormlogger.Warn, gl.logLevel)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
