package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Integrity rule identifiers
const (
	RuleAmountPaidDrift     = "AMOUNT_PAID_DRIFT"
	RuleAmountDueMismatch   = "AMOUNT_DUE_MISMATCH"
	RuleNegativeAmountPaid  = "NEGATIVE_AMOUNT_PAID"
	RuleStatusMismatch      = "STATUS_MISMATCH"
	RuleCreditCapExceeded   = "CREDIT_CAP_EXCEEDED"
	RuleReconciledNoPayment = "RECONCILED_WITHOUT_PAYMENT"
	RulePaymentLinkedTwice  = "PAYMENT_LINKED_TWICE"
	RuleQuoteTotalsMismatch = "QUOTE_TOTALS_MISMATCH"
)

// IntegrityViolation describes one broken invariant
type IntegrityViolation struct {
	Rule       string    `json:"rule"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	Number     string    `json:"number,omitempty"`
	Stored     string    `json:"stored,omitempty"`
	Expected   string    `json:"expected,omitempty"`
}

// ExpectedAmountPaid recomputes what an invoice has received from its history:
// completed payments plus applied credit notes
func ExpectedAmountPaid(payments []Payment, notes []CreditNote) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentStatusCompleted {
			sum = sum.Add(p.Amount)
		}
	}
	for _, cn := range notes {
		if cn.Status == CreditNoteStatusApplied {
			sum = sum.Add(cn.Amount)
		}
	}
	return sum
}

// VerifyInvoice checks the cached balance fields of an invoice against its history
func VerifyInvoice(inv *Invoice, payments []Payment, notes []CreditNote) []IntegrityViolation {
	var out []IntegrityViolation
	violation := func(rule string, stored, expected decimal.Decimal) IntegrityViolation {
		return IntegrityViolation{
			Rule:       rule,
			EntityType: AggregateTypeInvoice,
			EntityID:   inv.ID,
			Number:     inv.InvoiceNumber,
			Stored:     stored.String(),
			Expected:   expected.String(),
		}
	}

	expectedPaid := ExpectedAmountPaid(payments, notes)
	if !inv.AmountPaid.Equal(expectedPaid) {
		out = append(out, violation(RuleAmountPaidDrift, inv.AmountPaid, expectedPaid))
	}
	if expectedDue := inv.Total.Sub(inv.AmountPaid); !inv.AmountDue.Equal(expectedDue) {
		out = append(out, violation(RuleAmountDueMismatch, inv.AmountDue, expectedDue))
	}
	if inv.AmountPaid.IsNegative() {
		out = append(out, violation(RuleNegativeAmountPaid, inv.AmountPaid, decimal.Zero))
	}
	if inv.AmountPaid.IsPositive() && !inv.AmountDue.IsPositive() && inv.Status != InvoiceStatusPaid {
		out = append(out, IntegrityViolation{
			Rule:       RuleStatusMismatch,
			EntityType: AggregateTypeInvoice,
			EntityID:   inv.ID,
			Number:     inv.InvoiceNumber,
			Stored:     string(inv.Status),
			Expected:   string(InvoiceStatusPaid),
		})
	}
	if remaining := RemainingCredit(inv, notes); remaining.IsNegative() {
		out = append(out, violation(RuleCreditCapExceeded, inv.Total.Sub(remaining), inv.Total))
	}
	return out
}

// VerifyReconciliationLinks checks the 1:1 link between reconciled rows and payments
func VerifyReconciliationLinks(txs []BankTransaction) []IntegrityViolation {
	var out []IntegrityViolation
	seen := make(map[uuid.UUID]uuid.UUID)
	for _, tx := range txs {
		if !tx.Reconciled {
			continue
		}
		if tx.PaymentID == nil {
			out = append(out, IntegrityViolation{
				Rule:       RuleReconciledNoPayment,
				EntityType: AggregateTypeBankTransaction,
				EntityID:   tx.ID,
			})
			continue
		}
		if first, dup := seen[*tx.PaymentID]; dup {
			out = append(out, IntegrityViolation{
				Rule:       RulePaymentLinkedTwice,
				EntityType: AggregateTypeBankTransaction,
				EntityID:   tx.ID,
				Stored:     tx.PaymentID.String(),
				Expected:   "linked only by " + first.String(),
			})
			continue
		}
		seen[*tx.PaymentID] = tx.ID
	}
	return out
}

// VerifyQuote recomputes the quote totals from its items
func VerifyQuote(q *Quote, calc *Calculator) []IntegrityViolation {
	expected, ok, err := q.VerifyTotals(calc)
	if ok {
		return nil
	}
	v := IntegrityViolation{
		Rule:       RuleQuoteTotalsMismatch,
		EntityType: AggregateTypeQuote,
		EntityID:   q.ID,
		Number:     q.QuoteNumber,
		Stored:     q.Total.String(),
		Expected:   expected.Total.String(),
	}
	if err != nil {
		v.Expected = err.Error()
	}
	return []IntegrityViolation{v}
}
