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

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func sqlFn(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	warn, ok := gl.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, gl.logLevel)
	assert.Equal(t, gormlogger.Warn, warn.logLevel)
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("query at info level is logged as debug", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Info)
		ctx := WithRequestID(context.Background(), "req-7")
		gl.Trace(ctx, time.Now(), sqlFn(`SELECT * FROM "invoices"`), nil)

		entry := findEntry(t, recorded, "sql")
		assert.Equal(t, zapcore.DebugLevel, entry.Level)
		assert.Equal(t, "req-7", entry.ContextMap()["request_id"])
	})

	t.Run("errors are logged", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn("UPDATE invoices"), errors.New("deadlock detected"))
		assert.Equal(t, zapcore.ErrorLevel, findEntry(t, recorded, "sql error").Level)
	})

	t.Run("record not found is ignored by default", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT"), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn("SELECT pg_sleep(1)"), nil)
		assert.Equal(t, zapcore.WarnLevel, findEntry(t, recorded, "slow sql").Level)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		gl, recorded := newObservedGormLogger(gormlogger.Silent)
		gl.Trace(context.Background(), time.Now(), sqlFn("SELECT"), errors.New("boom"))
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestGormLogger_ParamsFilter(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Info)
	sql, params := gl.ParamsFilter(context.Background(), "amount = ?", "1500000")
	assert.Equal(t, "amount = ?", sql)
	assert.Nil(t, params)

	gl, _ = newObservedGormLogger(gormlogger.Info, WithParameterizedQueries(false))
	_, params = gl.ParamsFilter(context.Background(), "amount = ?", "1500000")
	assert.Equal(t, []any{"1500000"}, params)
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
