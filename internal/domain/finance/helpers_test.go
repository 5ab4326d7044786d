package finance

import (
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, got.Equal(dec(want)), "expected %s, got %s %v", want, got.String(), msgAndArgs)
}

func requireDomainError(t *testing.T, err error, kind shared.ErrorKind, code string) *shared.DomainError {
	t.Helper()
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "expected a DomainError, got %T", err)
	assert.Equal(t, kind, de.Kind)
	assert.Equal(t, code, de.Code)
	return de
}

// carQuote builds the single-vehicle quote used across the lifecycle scenarios
func carQuote(t *testing.T, owner uuid.UUID) *Quote {
	t.Helper()
	vehicleID := uuid.New()
	q, err := NewQuote(NewCalculator(decimal.Zero), NewQuoteParams{
		TenantID:    uuid.New(),
		CreatedBy:   owner,
		QuoteNumber: "COT-2026-000001",
		CustomerID:  uuid.New(),
		TeamID:      uuid.New(),
		VehicleID:   &vehicleID,
		Items: []LineItemInput{{
			Description: "Toyota Corolla 2024",
			Quantity:    dec("1"),
			UnitPrice:   dec("2500000"),
			TaxRate:     dec("0.19"),
			VehicleID:   &vehicleID,
		}},
		Now: testNow,
	})
	require.NoError(t, err)
	return q
}

func acceptedQuote(t *testing.T) *Quote {
	t.Helper()
	q := carQuote(t, uuid.New())
	require.NoError(t, q.Send(testNow))
	require.NoError(t, q.Accept(testNow.Add(time.Hour)))
	return q
}

func unpaidInvoice(t *testing.T) *Invoice {
	t.Helper()
	q := acceptedQuote(t)
	inv, err := NewInvoiceFromQuote(q, "FAC-2026-000001", uuid.New(), nil, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	return inv
}

// pay records a payment the way the ledger does: check, create, apply
func pay(t *testing.T, inv *Invoice, amount string, at time.Time) *Payment {
	t.Helper()
	amt := dec(amount)
	require.NoError(t, inv.CheckPayable(amt))
	p, err := NewPayment(inv, NewPaymentParams{
		PaymentNumber: "PAG-2026-000001",
		Amount:        amt,
		Method:        PaymentMethodBankTransfer,
		PaymentDate:   &at,
		Now:           at,
	})
	require.NoError(t, err)
	require.NoError(t, inv.ApplyAmount(amt, p.PaymentNumber, at))
	return p
}
