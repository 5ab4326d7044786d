package finance

import (
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The quote-to-cash path of a single vehicle sale: a deposit at conversion,
// the remaining balance, and a payment attempt on the settled invoice.
func TestPaymentLedger_VehicleSale(t *testing.T) {
	inv := unpaidInvoice(t)
	require.True(t, inv.Total.Equal(dec("2975000")))

	deposit := pay(t, inv, "975000", testNow)
	assertDecimal(t, "975000", inv.AmountPaid)
	assertDecimal(t, "2000000", inv.AmountDue)
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
	assert.Equal(t, PaymentStatusCompleted, deposit.Status)
	assert.Equal(t, inv.CustomerID, deposit.CustomerID)

	balance := pay(t, inv, "2000000", testNow.Add(24*time.Hour))
	assertDecimal(t, "0", inv.AmountDue)
	assert.Equal(t, InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidAt)

	de := requireDomainError(t, inv.CheckPayable(dec("1")), shared.KindStateConflict, CodeAlreadyPaid)
	assert.Contains(t, de.Message, "already fully paid")

	assert.Empty(t, VerifyInvoice(inv, []Payment{*deposit, *balance}, nil))
	assert.Equal(t, VehicleStatusReserved, VehicleStatusForDeposit(dec("975000"), inv.Total))
	assert.Equal(t, VehicleStatusSold, VehicleStatusForDeposit(inv.Total, inv.Total))
}

func TestInvoice_CheckPayable(t *testing.T) {
	t.Run("exceeds balance returns the remaining balance", func(t *testing.T) {
		inv := unpaidInvoice(t)
		pay(t, inv, "975000", testNow)

		de := requireDomainError(t, inv.CheckPayable(dec("2000001")), shared.KindStateConflict, CodeExceedsBalance)
		assert.Equal(t, "2000000", de.Details["remainingBalance"])
	})

	t.Run("non-positive amount", func(t *testing.T) {
		inv := unpaidInvoice(t)
		requireDomainError(t, inv.CheckPayable(dec("0")), shared.KindValidation, CodeInvalidAmount)
		requireDomainError(t, inv.CheckPayable(dec("-5")), shared.KindValidation, CodeInvalidAmount)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		require.NoError(t, inv.Cancel("", testNow))
		requireDomainError(t, inv.CheckPayable(dec("1")), shared.KindStateConflict, CodeInvoiceCancelled)
	})

	t.Run("exact balance pays in full", func(t *testing.T) {
		inv := unpaidInvoice(t)
		pay(t, inv, inv.AmountDue.String(), testNow)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})
}

func TestPayment_Refund(t *testing.T) {
	t.Run("cancelling the last payment of a paid invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		deposit := pay(t, inv, "975000", testNow)
		rest := pay(t, inv, "2000000", testNow)
		require.Equal(t, InvoiceStatusPaid, inv.Status)

		require.NoError(t, rest.Refund("chargeback", testNow))
		require.NoError(t, inv.ReverseAmount(rest.Amount, rest.PaymentNumber, testNow))
		assert.Equal(t, PaymentStatusRefunded, rest.Status)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
		assertDecimal(t, "2000000", inv.AmountDue)
		assert.Nil(t, inv.PaidAt)

		require.NoError(t, deposit.Refund("chargeback", testNow))
		require.NoError(t, inv.ReverseAmount(deposit.Amount, deposit.PaymentNumber, testNow))
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		assertDecimal(t, "0", inv.AmountPaid)
		assertDecimal(t, "2975000", inv.AmountDue)

		assert.Empty(t, VerifyInvoice(inv, []Payment{*deposit, *rest}, nil))
	})

	t.Run("refunding twice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		p := pay(t, inv, "1000", testNow)
		require.NoError(t, p.Refund("", testNow))
		requireDomainError(t, p.Refund("", testNow), shared.KindStateConflict, CodeAlreadyRefunded)
	})

	t.Run("reversal beyond the amount paid", func(t *testing.T) {
		inv := unpaidInvoice(t)
		pay(t, inv, "1000", testNow)
		requireDomainError(t, inv.ReverseAmount(dec("1001"), "", testNow), shared.KindStateConflict, "BALANCE_UNDERFLOW")
		assertDecimal(t, "1000", inv.AmountPaid)
	})
}

func TestNewPayment_Validation(t *testing.T) {
	inv := unpaidInvoice(t)
	future := testNow.Add(72 * time.Hour)

	tests := []struct {
		name   string
		params NewPaymentParams
		code   string
	}{
		{"zero amount", NewPaymentParams{PaymentNumber: "PAG-1", Amount: dec("0"), Method: PaymentMethodCash, Now: testNow}, CodeInvalidAmount},
		{"unknown method", NewPaymentParams{PaymentNumber: "PAG-1", Amount: dec("1"), Method: "BITCOIN", Now: testNow}, "INVALID_PAYMENT_METHOD"},
		{"future date", NewPaymentParams{PaymentNumber: "PAG-1", Amount: dec("1"), Method: PaymentMethodCash, PaymentDate: &future, Now: testNow}, "INVALID_PAYMENT_DATE"},
		{"missing number", NewPaymentParams{Amount: dec("1"), Method: PaymentMethodCash, Now: testNow}, "NUMBER_REQUIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(inv, tt.params)
			requireDomainError(t, err, shared.KindValidation, tt.code)
		})
	}
}

func TestPayment_WithinDays(t *testing.T) {
	p := &Payment{PaymentDate: time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)}
	p.ID = uuid.New()

	assert.True(t, p.WithinDays(time.Date(2026, 3, 13, 0, 1, 0, 0, time.UTC), 3))
	assert.True(t, p.WithinDays(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC), 3))
	assert.False(t, p.WithinDays(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 3))
	assert.False(t, p.WithinDays(time.Date(2026, 3, 6, 23, 59, 0, 0, time.UTC), 3))
}
