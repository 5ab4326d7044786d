package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var repoNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// newSQLiteDB opens a file-backed sqlite database with the finance schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "finance.db"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db.DB))
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func carItems(prices ...string) []finance.LineItemInput {
	items := make([]finance.LineItemInput, len(prices))
	for i, p := range prices {
		items[i] = finance.LineItemInput{
			Description: "vehicle line",
			Quantity:    dec("1"),
			UnitPrice:   dec(p),
			TaxRate:     dec("0.19"),
		}
	}
	return items
}

func newTestQuote(t *testing.T, tenantID uuid.UUID, number string, prices ...string) *finance.Quote {
	t.Helper()
	q, err := finance.NewQuote(finance.NewCalculator(finance.DefaultVATRate), finance.NewQuoteParams{
		TenantID:    tenantID,
		CreatedBy:   uuid.New(),
		QuoteNumber: number,
		CustomerID:  uuid.New(),
		TeamID:      uuid.New(),
		Items:       carItems(prices...),
		Now:         repoNow,
	})
	require.NoError(t, err)
	return q
}

func newTestInvoice(t *testing.T, tenantID uuid.UUID, number string, dueDate time.Time, prices ...string) *finance.Invoice {
	t.Helper()
	inv, err := finance.NewInvoice(finance.NewCalculator(finance.DefaultVATRate), finance.NewInvoiceParams{
		TenantID:      tenantID,
		CreatedBy:     uuid.New(),
		InvoiceNumber: number,
		CustomerID:    uuid.New(),
		TeamID:        uuid.New(),
		Items:         carItems(prices...),
		DueDate:       &dueDate,
		Now:           repoNow,
	})
	require.NoError(t, err)
	return inv
}

func newTestPayment(t *testing.T, inv *finance.Invoice, number, amount string, paidAt time.Time) *finance.Payment {
	t.Helper()
	p, err := finance.NewPayment(inv, finance.NewPaymentParams{
		PaymentNumber: number,
		Amount:        dec(amount),
		Method:        finance.PaymentMethodBankTransfer,
		PaymentDate:   &paidAt,
		Now:           paidAt,
	})
	require.NoError(t, err)
	return p
}
