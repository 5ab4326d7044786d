package finance

import (
	"testing"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueNote(t *testing.T, inv *Invoice, existing []CreditNote, amount string, issue bool) *CreditNote {
	t.Helper()
	cn, err := NewCreditNote(inv, existing, NewCreditNoteParams{
		CreditNoteNumber: "NC-2026-000001",
		Amount:           dec(amount),
		Reason:           "price adjustment",
		Issue:            issue,
		CreatedBy:        uuid.New(),
		Now:              testNow,
	})
	require.NoError(t, err)
	return cn
}

// applyNote applies a credit note the way the engine does: note first, then the invoice
func applyNote(t *testing.T, inv *Invoice, cn *CreditNote) {
	t.Helper()
	require.NoError(t, cn.Apply(testNow))
	require.NoError(t, inv.ApplyAmount(cn.Amount, cn.CreditNoteNumber, testNow))
}

func TestNewCreditNote(t *testing.T) {
	t.Run("draft or issued", func(t *testing.T) {
		inv := unpaidInvoice(t)
		draft := issueNote(t, inv, nil, "1000", false)
		assert.Equal(t, CreditNoteStatusDraft, draft.Status)
		assert.Nil(t, draft.IssuedAt)

		issued := issueNote(t, inv, nil, "1000", true)
		assert.Equal(t, CreditNoteStatusIssued, issued.Status)
		assert.NotNil(t, issued.IssuedAt)
		assert.Equal(t, inv.CustomerID, issued.CustomerID)
	})

	t.Run("cap on the sum of non-cancelled notes", func(t *testing.T) {
		inv := unpaidInvoice(t)
		first := issueNote(t, inv, nil, "2000000", true)

		_, err := NewCreditNote(inv, []CreditNote{*first}, NewCreditNoteParams{
			CreditNoteNumber: "NC-2026-000002",
			Amount:           dec("975001"),
			Reason:           "second adjustment",
			Now:              testNow,
		})
		de := requireDomainError(t, err, shared.KindStateConflict, CodeExceedsRemainingBalance)
		assert.Equal(t, "975000", de.Details["remainingBalance"])

		// exactly the remainder is allowed
		second := issueNote(t, inv, []CreditNote{*first}, "975000", true)
		assert.Equal(t, CreditNoteStatusIssued, second.Status)

		// cancelled notes free their share of the cap
		_, err = first.Cancel("issued by mistake", testNow)
		require.NoError(t, err)
		issueNote(t, inv, []CreditNote{*first, *second}, "2000000", false)
	})

	t.Run("cancelled invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		require.NoError(t, inv.Cancel("", testNow))
		_, err := NewCreditNote(inv, nil, NewCreditNoteParams{CreditNoteNumber: "NC-1", Amount: dec("1"), Reason: "x", Now: testNow})
		requireDomainError(t, err, shared.KindStateConflict, CodeInvoiceCancelled)
	})

	t.Run("reason is required", func(t *testing.T) {
		inv := unpaidInvoice(t)
		_, err := NewCreditNote(inv, nil, NewCreditNoteParams{CreditNoteNumber: "NC-1", Amount: dec("1"), Reason: "  ", Now: testNow})
		requireDomainError(t, err, shared.KindValidation, "REASON_REQUIRED")
	})
}

func TestCreditNote_Apply(t *testing.T) {
	t.Run("applying twice leaves the balance unchanged", func(t *testing.T) {
		inv := unpaidInvoice(t)
		cn := issueNote(t, inv, nil, "500000", true)
		applyNote(t, inv, cn)
		assertDecimal(t, "500000", inv.AmountPaid)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)

		requireDomainError(t, cn.Apply(testNow), shared.KindStateConflict, CodeCreditNoteNotApplicable)
		assertDecimal(t, "500000", inv.AmountPaid)
	})

	t.Run("credit closing the remaining balance pays the invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		p := pay(t, inv, "2475000", testNow)
		cn := issueNote(t, inv, nil, "500000", false)
		applyNote(t, inv, cn)

		assertDecimal(t, "0", inv.AmountDue)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.Empty(t, VerifyInvoice(inv, []Payment{*p}, []CreditNote{*cn}))
	})

	// A credit on a settled invoice is counted as money received: the invoice
	// stays PAID and the surplus shows up as a negative amount due.
	t.Run("credit on a paid invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		p := pay(t, inv, "2975000", testNow)
		require.Equal(t, InvoiceStatusPaid, inv.Status)

		cn := issueNote(t, inv, nil, "500000", true)
		applyNote(t, inv, cn)

		assertDecimal(t, "3475000", inv.AmountPaid)
		assertDecimal(t, "-500000", inv.AmountDue)
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		require.NoError(t, inv.CheckBalanceInvariant())
		assert.Empty(t, VerifyInvoice(inv, []Payment{*p}, []CreditNote{*cn}))
	})
}

func TestCreditNote_Cancel(t *testing.T) {
	t.Run("cancelling an applied note reverses the invoice", func(t *testing.T) {
		inv := unpaidInvoice(t)
		cn := issueNote(t, inv, nil, "500000", true)
		applyNote(t, inv, cn)

		wasApplied, err := cn.Cancel("wrong customer", testNow)
		require.NoError(t, err)
		require.True(t, wasApplied)
		require.NoError(t, inv.ReverseAmount(cn.Amount, cn.CreditNoteNumber, testNow))

		assert.Equal(t, CreditNoteStatusCancelled, cn.Status)
		assertDecimal(t, "0", inv.AmountPaid)
		assert.Equal(t, InvoiceStatusSent, inv.Status)
	})

	t.Run("cancelling an unapplied note", func(t *testing.T) {
		inv := unpaidInvoice(t)
		cn := issueNote(t, inv, nil, "1", false)
		wasApplied, err := cn.Cancel("", testNow)
		require.NoError(t, err)
		assert.False(t, wasApplied)
	})

	t.Run("cancelled is terminal", func(t *testing.T) {
		inv := unpaidInvoice(t)
		cn := issueNote(t, inv, nil, "1", false)
		_, err := cn.Cancel("", testNow)
		require.NoError(t, err)

		_, err = cn.Cancel("", testNow)
		requireDomainError(t, err, shared.KindStateConflict, CodeAlreadyCancelled)
		requireDomainError(t, cn.Apply(testNow), shared.KindStateConflict, CodeCreditNoteNotApplicable)
	})
}
