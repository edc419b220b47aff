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
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func TestGormLogger_Trace(t *testing.T) {
	t.Run("logs queries at debug in info mode", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Info)

		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "SQL Query", entry.Message)
		assert.Equal(t, "SELECT 1", entry.ContextMap()["sql"])
	})

	t.Run("silent mode logs nothing", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, errors.New("boom"))

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("errors are logged with the statement", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)

		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "UPDATE invoices SET version = 2", 0
		}, errors.New("connection reset"))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "SQL Error", logs.All()[0].Message)
	})

	t.Run("record not found is suppressed by default", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Error)

		l.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 0
		}, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("slow query warning", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

		l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
			return "SELECT pg_sleep(1)", 0
		}, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("includes request id from context", func(t *testing.T) {
		l, logs := newObservedGormLogger(gormlogger.Info)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")

		l.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("other"))
}
