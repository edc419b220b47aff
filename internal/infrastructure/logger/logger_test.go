package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("creates console logger", func(t *testing.T) {
		l, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("creates json logger", func(t *testing.T) {
		l, err := New(ProductionConfig())
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), tt.input)
	}
}

func TestContextHelpers(t *testing.T) {
	t.Run("round-trips logger through context", func(t *testing.T) {
		l := zap.NewNop()
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("missing logger yields no-op", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("request id enrichment", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		ctx, enriched := WithRequestID(context.Background(), base, "req-123")
		enriched.Info("hello")

		assert.Equal(t, "req-123", GetRequestID(ctx))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
	})

	t.Run("tenant and user ids", func(t *testing.T) {
		ctx, _ := WithTenantID(context.Background(), zap.NewNop(), "tenant-1")
		ctx, _ = WithUserID(ctx, zap.NewNop(), "user-1")

		assert.Equal(t, "tenant-1", GetTenantID(ctx))
		assert.Equal(t, "user-1", GetUserID(ctx))
		assert.Empty(t, GetRequestID(ctx))
	})
}
