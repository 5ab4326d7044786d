package finance

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the tunables of the finance services
type Config struct {
	DefaultVATRate          decimal.Decimal
	DefaultCurrency         valueobject.Currency
	QuoteValidityDays       int
	ReconciliationBatchSize int
	ReconciliationMaxPages  int
	MatchWindowDays         int
	ReconciliationLockTTL   time.Duration
}

// DefaultConfig returns the Chilean dealership defaults
func DefaultConfig() Config {
	return Config{
		DefaultVATRate:          finance.DefaultVATRate,
		DefaultCurrency:         valueobject.DefaultCurrency,
		QuoteValidityDays:       finance.DefaultQuoteValidityDays,
		ReconciliationBatchSize: finance.DefaultReconciliationBatchSize,
		ReconciliationMaxPages:  finance.DefaultReconciliationMaxPages,
		MatchWindowDays:         finance.DefaultMatchWindowDays,
		ReconciliationLockTTL:   2 * time.Minute,
	}
}

// ConfigFrom maps the loaded finance settings; zero values fall back to the defaults
func ConfigFrom(fc config.FinanceConfig) (Config, error) {
	c := Config{
		DefaultVATRate:          fc.DefaultVATRate,
		QuoteValidityDays:       fc.QuoteValidityDays,
		ReconciliationBatchSize: fc.ReconciliationBatchSize,
		ReconciliationMaxPages:  fc.ReconciliationMaxPages,
		MatchWindowDays:         fc.ReconciliationWindow,
		ReconciliationLockTTL:   fc.ReconciliationLockTTL,
	}
	if fc.DefaultCurrency != "" {
		currency, err := valueobject.ParseCurrency(fc.DefaultCurrency)
		if err != nil {
			return Config{}, err
		}
		c.DefaultCurrency = currency
	}
	return c.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultVATRate.IsZero() {
		c.DefaultVATRate = d.DefaultVATRate
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = d.DefaultCurrency
	}
	if c.QuoteValidityDays <= 0 {
		c.QuoteValidityDays = d.QuoteValidityDays
	}
	if c.ReconciliationBatchSize <= 0 {
		c.ReconciliationBatchSize = d.ReconciliationBatchSize
	}
	if c.ReconciliationMaxPages <= 0 {
		c.ReconciliationMaxPages = d.ReconciliationMaxPages
	}
	if c.MatchWindowDays <= 0 {
		c.MatchWindowDays = d.MatchWindowDays
	}
	if c.ReconciliationLockTTL <= 0 {
		c.ReconciliationLockTTL = d.ReconciliationLockTTL
	}
	return c
}

// Role sets allowed per operation group
var (
	readRoles       = []shared.Role{shared.RoleManager, shared.RoleSales, shared.RoleAccountant, shared.RoleViewer}
	salesRoles      = []shared.Role{shared.RoleManager, shared.RoleSales}
	billingRoles    = []shared.Role{shared.RoleManager, shared.RoleSales, shared.RoleAccountant}
	accountingRoles = []shared.Role{shared.RoleManager, shared.RoleAccountant}
	auditRoles      = []shared.Role{shared.RoleManager, shared.RoleAccountant}
)

// Dependencies are shared by all finance services
type Dependencies struct {
	Scope  TransactionScope
	Logger *zap.Logger
	Config Config
	// Clock returns the current time; nil means time.Now in UTC
	Clock func() time.Time
}

type base struct {
	scope  TransactionScope
	logger *zap.Logger
	cfg    Config
	calc   *finance.Calculator
	clock  func() time.Time
}

func newBase(deps Dependencies) base {
	cfg := deps.Config.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return base{
		scope:  deps.Scope,
		logger: logger,
		cfg:    cfg,
		calc:   finance.NewCalculator(cfg.DefaultVATRate),
		clock:  clock,
	}
}

func (b base) now() time.Time {
	return b.clock()
}

// Calculator exposes the configured calculator
func (b base) Calculator() *finance.Calculator {
	return b.calc
}
