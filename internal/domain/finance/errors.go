package finance

import (
	"fmt"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes surfaced to callers
const (
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeQuoteExpired             = "QUOTE_EXPIRED"
	CodeQuoteNotAccepted         = "QUOTE_NOT_ACCEPTED"
	CodeAlreadyConverted         = "ALREADY_CONVERTED"
	CodeInvoiceCancelled         = "INVOICE_CANCELLED"
	CodeAlreadyPaid              = "ALREADY_PAID"
	CodeExceedsBalance           = "EXCEEDS_BALANCE"
	CodeExceedsRemainingBalance  = "EXCEEDS_REMAINING_BALANCE"
	CodeHasPayments              = "HAS_PAYMENTS"
	CodeInvoiceNotEditable       = "INVOICE_NOT_EDITABLE"
	CodeAlreadyRefunded          = "ALREADY_REFUNDED"
	CodePaymentNotCompleted      = "PAYMENT_NOT_COMPLETED"
	CodeCreditNoteNotApplicable  = "CREDIT_NOTE_NOT_APPLICABLE"
	CodeAlreadyCancelled         = "ALREADY_CANCELLED"
	CodeAlreadyReconciled        = "ALREADY_RECONCILED"
	CodePaymentAlreadyLinked     = "PAYMENT_ALREADY_RECONCILED"
	CodePaymentReconciled        = "PAYMENT_RECONCILED"
	CodeAccountMismatch          = "ACCOUNT_MISMATCH"
	CodeInvalidAmount            = "INVALID_AMOUNT"
	CodeCurrencyMismatch         = "CURRENCY_MISMATCH"
	CodeReconciliationInProgress = "RECONCILIATION_IN_PROGRESS"
)

// invalidTransition builds the INVALID_TRANSITION error listing the legal successors
func invalidTransition[S ~string](entity string, current, target S, allowed []S) *shared.DomainError {
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return shared.NewStateConflictError(CodeInvalidTransition,
		fmt.Sprintf("cannot change %s from %s to %s", entity, current, target)).
		WithDetail("currentStatus", string(current)).
		WithDetail("targetStatus", string(target)).
		WithDetail("allowedStatuses", names)
}

func positiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError(CodeInvalidAmount, field+" must be positive")
	}
	return nil
}
