package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no config.toml or .env leaks in
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		inTempDir(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "dealerdesk-finance", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "dealerdesk", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.True(t, decimal.RequireFromString("0.19").Equal(cfg.Finance.DefaultVATRate))
		assert.Equal(t, "CLP", cfg.Finance.DefaultCurrency)
		assert.Equal(t, 30, cfg.Finance.QuoteValidityDays)
		assert.Equal(t, 100, cfg.Finance.ReconciliationBatchSize)
		assert.Equal(t, 50, cfg.Finance.ReconciliationMaxPages)
		assert.Equal(t, 3, cfg.Finance.ReconciliationWindow)
		assert.Equal(t, 2*time.Minute, cfg.Finance.ReconciliationLockTTL)
		assert.NotEmpty(t, cfg.JWT.Secret, "development gets a throwaway signing secret")
		assert.False(t, cfg.Scheduler.Enabled)
		assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
		assert.Equal(t, 3, cfg.Scheduler.RetryAttempts)
	})

	t.Run("loads values from environment variables with DEALER prefix", func(t *testing.T) {
		inTempDir(t)
		t.Setenv("DEALER_APP_PORT", "9000")
		t.Setenv("DEALER_DATABASE_HOST", "db.internal")
		t.Setenv("DEALER_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("DEALER_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("DEALER_FINANCE_DEFAULT_VAT_RATE", "0.21")
		t.Setenv("DEALER_FINANCE_DEFAULT_CURRENCY", "USD")
		t.Setenv("DEALER_FINANCE_RECONCILIATION_WINDOW_DAYS", "5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.True(t, decimal.RequireFromString("0.21").Equal(cfg.Finance.DefaultVATRate))
		assert.Equal(t, "USD", cfg.Finance.DefaultCurrency)
		assert.Equal(t, 5, cfg.Finance.ReconciliationWindow)
	})

	t.Run("reads a .env file from the working directory", func(t *testing.T) {
		dir := inTempDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DEALER_APP_NAME=from-dotenv\n"), 0o600))
		t.Cleanup(func() { _ = os.Unsetenv("DEALER_APP_NAME") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.App.Name)
	})

	t.Run("reads config.toml", func(t *testing.T) {
		dir := inTempDir(t)
		toml := "[finance]\nquote_validity_days = 15\n\n[database]\ndriver = \"sqlite\"\nsqlite_path = \":memory:\"\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 15, cfg.Finance.QuoteValidityDays)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, ":memory:", cfg.Database.SQLitePath)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		inTempDir(t)
		t.Setenv("DEALER_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("DEALER_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects a malformed VAT rate", func(t *testing.T) {
		inTempDir(t)
		t.Setenv("DEALER_FINANCE_DEFAULT_VAT_RATE", "nineteen")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_vat_rate")
	})

	t.Run("rejects a scheduler interval under a minute", func(t *testing.T) {
		inTempDir(t)
		t.Setenv("DEALER_SCHEDULER_ENABLED", "true")
		t.Setenv("DEALER_SCHEDULER_INTERVAL", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheduler.interval")
	})

	t.Run("rejects an unknown driver", func(t *testing.T) {
		inTempDir(t)
		t.Setenv("DEALER_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})
}

func TestValidate_Production(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			App:      AppConfig{Env: "production"},
			Database: DatabaseConfig{Driver: "postgres", Password: "secret", SSLMode: "require"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid production config", func(*Config) {}, ""},
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "jwt.secret"},
		{"missing db password", func(c *Config) { c.Database.Password = "" }, "database.password"},
		{"sslmode disabled", func(c *Config) { c.Database.SSLMode = "disable" }, "sslmode"},
		{"sqlite in production", func(c *Config) { c.Database.Driver = "sqlite" }, "must be postgres"},
		{"dev actor headers", func(c *Config) { c.HTTP.DevActorHeaders = true }, "dev_actor_headers"},
		{"wildcard cors", func(c *Config) { c.HTTP.CORSAllowOrigins = []string{"*"} }, "cors_allow_origins"},
		{"full sql in traces", func(c *Config) { c.Telemetry.DBLogFullSQL = true }, "db_log_full_sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "fin", Password: "p@ss word", DBName: "dealer", SSLMode: "require"}
	assert.Equal(t, "postgres://fin:p%40ss%20word@db:5432/dealer?sslmode=require", d.DSN())
}
