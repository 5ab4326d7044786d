package testutil

import (
	"context"
	"sync"
	"testing"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/cache"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

// VehicleCall is one recorded vehicle status update
type VehicleCall struct {
	TenantID  uuid.UUID
	VehicleID uuid.UUID
	Status    finance.VehicleStatus
}

// VehicleRecorder is a finance.VehicleStatusUpdater that records its calls
type VehicleRecorder struct {
	mu    sync.Mutex
	calls []VehicleCall
	err   error
}

// UpdateStatus records the call and returns the configured error
func (r *VehicleRecorder) UpdateStatus(_ context.Context, tenantID, vehicleID uuid.UUID, status finance.VehicleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, VehicleCall{TenantID: tenantID, VehicleID: vehicleID, Status: status})
	return r.err
}

// Calls returns a copy of the recorded calls
func (r *VehicleRecorder) Calls() []VehicleCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]VehicleCall(nil), r.calls...)
}

// FailWith makes later calls return err
func (r *VehicleRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Harness is a complete finance stack over a private sqlite database
type Harness struct {
	DB       *gorm.DB
	Services *appfinance.Services
	Clock    *Clock
	Vehicles *VehicleRecorder
	Locker   *cache.InMemoryLocker
	Logger   *zap.Logger
	Logs     *observer.ObservedLogs

	TenantID   uuid.UUID
	CustomerID uuid.UUID
	TeamID     uuid.UUID
}

// HarnessOption customizes the stack built by NewHarness
type HarnessOption func(*harnessOptions)

type harnessOptions struct {
	config    appfinance.Config
	wrapScope func(appfinance.TransactionScope) appfinance.TransactionScope
}

// WithConfig replaces the default finance configuration
func WithConfig(cfg appfinance.Config) HarnessOption {
	return func(o *harnessOptions) { o.config = cfg }
}

// WithScopeWrapper lets a test interpose on every transaction the services open
func WithScopeWrapper(wrap func(appfinance.TransactionScope) appfinance.TransactionScope) HarnessOption {
	return func(o *harnessOptions) { o.wrapScope = wrap }
}

// NewHarness builds the stack with one tenant holding one customer and one team
func NewHarness(t *testing.T, opts ...HarnessOption) *Harness {
	t.Helper()
	return NewHarnessWithDB(t, NewSQLiteDB(t), opts...)
}

// NewHarnessWithDB is NewHarness over an already migrated database
func NewHarnessWithDB(t *testing.T, db *gorm.DB, opts ...HarnessOption) *Harness {
	t.Helper()

	o := harnessOptions{config: appfinance.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	clock := NewClock(Epoch)
	vehicles := &VehicleRecorder{}
	locker := cache.NewInMemoryLocker()

	var scope appfinance.TransactionScope = persistence.NewGormTransactionScope(db)
	if o.wrapScope != nil {
		scope = o.wrapScope(scope)
	}
	deps := appfinance.Dependencies{
		Scope:  scope,
		Logger: log,
		Config: o.config,
		Clock:  clock.Now,
	}

	h := &Harness{
		DB:       db,
		Services: appfinance.NewServices(deps, vehicles, locker),
		Clock:    clock,
		Vehicles: vehicles,
		Locker:   locker,
		Logger:   log,
		Logs:     logs,
		TenantID: NewTestUUID("tenant-main"),
	}
	h.CustomerID, h.TeamID = h.SeedParties(t, h.TenantID)
	return h
}

// SeedParties stores an active customer and team for tenantID and returns their ids
func (h *Harness) SeedParties(t *testing.T, tenantID uuid.UUID) (customerID, teamID uuid.UUID) {
	t.Helper()
	dir := persistence.NewGormPartyDirectory(h.DB)
	ctx := t.Context()

	customer := &models.CustomerModel{
		TenantID: tenantID,
		Name:     "Automotora Los Andes SpA",
		TaxID:    "76.123.456-7",
		Email:    "compras@losandes.example",
		IsActive: true,
	}
	customer.ID = uuid.New()
	require.NoError(t, dir.SaveCustomer(ctx, customer))

	team := &models.TeamModel{TenantID: tenantID, Name: "Ventas Santiago Centro", IsActive: true}
	team.ID = uuid.New()
	require.NoError(t, dir.SaveTeam(ctx, team))

	return customer.ID, team.ID
}

// Actor returns a deterministic actor of the harness tenant holding role
func (h *Harness) Actor(role shared.Role) shared.Actor {
	return shared.Actor{
		UserID:   NewTestUUID("user-" + string(role)),
		TenantID: h.TenantID,
		Role:     role,
	}
}

// CarQuote is a create-quote request for one vehicle line at the default VAT rate
func (h *Harness) CarQuote(unitPrice string) appfinance.CreateQuoteRequest {
	return appfinance.CreateQuoteRequest{
		CustomerID: h.CustomerID,
		TeamID:     h.TeamID,
		Items: []appfinance.LineItemRequest{{
			Description: "Toyota RAV4 2024 Hybrid",
			Quantity:    Dec("1"),
			UnitPrice:   Dec(unitPrice),
			TaxRate:     DecPtr("0.19"),
		}},
	}
}

// CarInvoice is a create-invoice request for one vehicle line at the default VAT rate
func (h *Harness) CarInvoice(unitPrice string) appfinance.CreateInvoiceRequest {
	q := h.CarQuote(unitPrice)
	return appfinance.CreateInvoiceRequest{
		CustomerID: q.CustomerID,
		TeamID:     q.TeamID,
		Items:      q.Items,
	}
}
