package finance_test

import (
	"testing"
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFrom(t *testing.T) {
	t.Run("zero values take the defaults", func(t *testing.T) {
		cfg, err := appfinance.ConfigFrom(config.FinanceConfig{})
		require.NoError(t, err)
		assert.Equal(t, appfinance.DefaultConfig(), cfg)
	})

	t.Run("loaded values win", func(t *testing.T) {
		cfg, err := appfinance.ConfigFrom(config.FinanceConfig{
			DefaultVATRate:          testutil.Dec("0.21"),
			DefaultCurrency:         "usd",
			QuoteValidityDays:       15,
			ReconciliationBatchSize: 50,
			ReconciliationMaxPages:  4,
			ReconciliationWindow:    7,
			ReconciliationLockTTL:   time.Minute,
		})
		require.NoError(t, err)
		testutil.AssertDecimal(t, "0.21", cfg.DefaultVATRate)
		assert.Equal(t, valueobject.USD, cfg.DefaultCurrency)
		assert.Equal(t, 15, cfg.QuoteValidityDays)
		assert.Equal(t, 50, cfg.ReconciliationBatchSize)
		assert.Equal(t, 4, cfg.ReconciliationMaxPages)
		assert.Equal(t, 7, cfg.MatchWindowDays)
		assert.Equal(t, time.Minute, cfg.ReconciliationLockTTL)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := appfinance.ConfigFrom(config.FinanceConfig{DefaultCurrency: "XYZ"})
		assert.Error(t, err)
	})
}
