package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("stdout json", func(t *testing.T) {
		log, err := New(Config{Level: "debug", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("empty level defaults to info", func(t *testing.T) {
		log, err := New(Config{})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})

	t.Run("unknown level is rejected", func(t *testing.T) {
		_, err := New(Config{Level: "verbose"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})

	t.Run("writes json lines to a file with service fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "finance.log")
		log, err := New(Config{Level: "info", Format: "json", Output: path, Service: "dealerdesk-finance", Env: "test"})
		require.NoError(t, err)

		log.Info("invoice created")
		require.NoError(t, log.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"invoice created"`)
		assert.Contains(t, string(data), `"service":"dealerdesk-finance"`)
		assert.Contains(t, string(data), `"env":"test"`)
	})

	t.Run("unwritable file is an error", func(t *testing.T) {
		_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
		require.Error(t, err)
	})
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "dealerdesk-finance", Env: "production"},
		Log: config.LogConfig{Level: "warn", Format: "console", Output: "stderr"},
	}

	got := FromAppConfig(cfg)
	assert.Equal(t, Config{Level: "warn", Format: "json", Output: "stderr", Service: "dealerdesk-finance", Env: "production"}, got)

	cfg.App.Env = "development"
	assert.Equal(t, "console", FromAppConfig(cfg).Format)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
