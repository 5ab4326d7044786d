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

func TestInvoiceStatus_TransitionTable(t *testing.T) {
	all := []InvoiceStatus{
		InvoiceStatusDraft, InvoiceStatusUnpaid, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled,
	}
	allowed := map[InvoiceStatus][]InvoiceStatus{
		InvoiceStatusDraft:         {InvoiceStatusUnpaid, InvoiceStatusSent, InvoiceStatusCancelled},
		InvoiceStatusUnpaid:        {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusSent:          {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusPartiallyPaid: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusOverdue:       {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, InvoiceStatusPaid.IsTerminal())
	assert.True(t, InvoiceStatusCancelled.IsTerminal())
	assert.False(t, InvoiceStatus("VOID").IsValid())
}

func manualInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewCalculator(decimal.Zero), NewInvoiceParams{
		TenantID:      uuid.New(),
		CreatedBy:     uuid.New(),
		InvoiceNumber: "FAC-2026-000010",
		CustomerID:    uuid.New(),
		TeamID:        uuid.New(),
		Items: []LineItemInput{
			{Description: "Maintenance 10.000 km", Quantity: dec("1"), UnitPrice: dec("100000"), TaxRate: dec("0.19")},
		},
		Now: testNow,
	})
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("manual invoices start as draft", func(t *testing.T) {
		inv := manualInvoice(t)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assertDecimal(t, "119000", inv.Total)
		assertDecimal(t, "0", inv.AmountPaid)
		assertDecimal(t, "119000", inv.AmountDue)
		assert.Equal(t, testNow.AddDate(0, 0, DefaultPaymentTermDays), inv.DueDate)
		require.NoError(t, inv.CheckBalanceInvariant())
	})

	t.Run("due date in the past", func(t *testing.T) {
		past := testNow.AddDate(0, 0, -2)
		_, err := NewInvoice(NewCalculator(decimal.Zero), NewInvoiceParams{
			TenantID:      uuid.New(),
			InvoiceNumber: "FAC-2026-000011",
			CustomerID:    uuid.New(),
			TeamID:        uuid.New(),
			Items:         []LineItemInput{{Quantity: dec("1"), UnitPrice: dec("1")}},
			DueDate:       &past,
			Now:           testNow,
		})
		requireDomainError(t, err, shared.KindValidation, "INVALID_DUE_DATE")
	})

	t.Run("conversion copies items and totals verbatim", func(t *testing.T) {
		q := acceptedQuote(t)
		inv, err := NewInvoiceFromQuote(q, "FAC-2026-000001", uuid.New(), nil, testNow.Add(2*time.Hour))
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusUnpaid, inv.Status)
		assert.Equal(t, q.ID, *inv.SourceQuoteID)
		assert.Equal(t, q.CustomerID, inv.CustomerID)
		assert.Equal(t, q.VehicleID, inv.VehicleID)
		assert.True(t, inv.Total.Equal(q.Total))
		assert.True(t, inv.TaxAmount.Equal(q.TaxAmount))
		require.Len(t, inv.Items, len(q.Items))
		assert.NotEqual(t, q.Items[0].ID, inv.Items[0].ID)
		assert.Equal(t, q.Items[0].Description, inv.Items[0].Description)
		assert.Equal(t, q.ID.String(), inv.GetDomainEvents()[0].Changes()["sourceQuoteId"].New)
	})

	t.Run("conversion of a draft quote", func(t *testing.T) {
		q := carQuote(t, uuid.New())
		_, err := NewInvoiceFromQuote(q, "FAC-2026-000002", uuid.New(), nil, testNow)
		requireDomainError(t, err, shared.KindStateConflict, CodeQuoteNotAccepted)
	})
}

func TestInvoice_TransitionTo(t *testing.T) {
	t.Run("draft to sent", func(t *testing.T) {
		inv := manualInvoice(t)
		require.NoError(t, inv.Send(testNow))
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		require.NotNil(t, inv.SentAt)
	})

	t.Run("illegal transition names the allowed successors", func(t *testing.T) {
		inv := manualInvoice(t)
		de := requireDomainError(t, inv.TransitionTo(InvoiceStatusOverdue, testNow), shared.KindStateConflict, CodeInvalidTransition)
		assert.Equal(t, "DRAFT", de.Details["currentStatus"])
		assert.Equal(t, "OVERDUE", de.Details["targetStatus"])
		assert.Equal(t, []string{"UNPAID", "SENT", "CANCELLED"}, de.Details["allowedStatuses"])
	})

	t.Run("cannot be marked paid with a balance", func(t *testing.T) {
		inv := unpaidInvoice(t)
		de := requireDomainError(t, inv.TransitionTo(InvoiceStatusPaid, testNow), shared.KindStateConflict, "BALANCE_OUTSTANDING")
		assert.Equal(t, "2975000", de.Details["remainingBalance"])
	})

	t.Run("unknown status", func(t *testing.T) {
		inv := manualInvoice(t)
		requireDomainError(t, inv.TransitionTo("VOID", testNow), shared.KindValidation, "INVALID_STATUS")
	})
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("without payments", func(t *testing.T) {
		inv := unpaidInvoice(t)
		require.NoError(t, inv.Cancel("duplicate", testNow))
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
		assert.Equal(t, "duplicate", inv.CancelReason)

		requireDomainError(t, inv.Cancel("again", testNow), shared.KindStateConflict, CodeInvalidTransition)
	})

	t.Run("with payments requires a credit note", func(t *testing.T) {
		inv := unpaidInvoice(t)
		pay(t, inv, "100000", testNow)
		de := requireDomainError(t, inv.Cancel("customer changed mind", testNow), shared.KindStateConflict, CodeHasPayments)
		assert.Equal(t, "100000", de.Details["amountPaid"])
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
	})

	t.Run("via the transition table", func(t *testing.T) {
		inv := manualInvoice(t)
		require.NoError(t, inv.TransitionTo(InvoiceStatusCancelled, testNow))
		assert.Equal(t, InvoiceStatusCancelled, inv.Status)
	})
}

func TestInvoice_UpdateDetails(t *testing.T) {
	notes := "Retiro en sucursal Providencia"
	due := testNow.AddDate(0, 0, 45)

	t.Run("open invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		inv.PullDomainEvents()
		require.NoError(t, inv.UpdateDetails(InvoiceDetailsUpdate{DueDate: &due, Notes: &notes}, testNow))
		assert.Equal(t, due, inv.DueDate)
		assert.Equal(t, notes, inv.Notes)

		events := inv.PullDomainEvents()
		require.Len(t, events, 1)
		assert.Contains(t, events[0].Changes(), "dueDate")
		assert.Contains(t, events[0].Changes(), "notes")
	})

	t.Run("no-op update raises nothing", func(t *testing.T) {
		inv := unpaidInvoice(t)
		inv.PullDomainEvents()
		same := inv.Notes
		require.NoError(t, inv.UpdateDetails(InvoiceDetailsUpdate{Notes: &same}, testNow))
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("paid invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		pay(t, inv, "2975000", testNow)
		err := inv.UpdateDetails(InvoiceDetailsUpdate{Notes: &notes}, testNow)
		requireDomainError(t, err, shared.KindStateConflict, CodeInvoiceNotEditable)
	})
}

func TestInvoice_MarkOverdue(t *testing.T) {
	inv := unpaidInvoice(t)

	assert.False(t, inv.MarkOverdue(inv.DueDate))
	assert.True(t, inv.MarkOverdue(inv.DueDate.Add(time.Hour)))
	assert.Equal(t, InvoiceStatusOverdue, inv.Status)
	assert.False(t, inv.MarkOverdue(inv.DueDate.Add(2*time.Hour)))

	// a partial payment on an overdue invoice follows the balance rule
	pay(t, inv, "1000", inv.DueDate.Add(3*time.Hour))
	assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)

	draft := manualInvoice(t)
	assert.False(t, draft.MarkOverdue(draft.DueDate.AddDate(1, 0, 0)))
}

func TestInvoice_CheckBalanceInvariant(t *testing.T) {
	inv := unpaidInvoice(t)
	require.NoError(t, inv.CheckBalanceInvariant())

	inv.AmountDue = inv.AmountDue.Sub(decimal.NewFromInt(1))
	err := inv.CheckBalanceInvariant()
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindInternal))
}
