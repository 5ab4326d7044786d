package finance

import (
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeQuote           = "Quote"
	AggregateTypeInvoice         = "Invoice"
	AggregateTypePayment         = "Payment"
	AggregateTypeCreditNote      = "CreditNote"
	AggregateTypeBankAccount     = "BankAccount"
	AggregateTypeBankTransaction = "BankTransaction"
)

// Event type constants
const (
	EventTypeQuoteCreated      = "QuoteCreated"
	EventTypeQuoteItemsUpdated = "QuoteItemsUpdated"
	EventTypeQuoteSent         = "QuoteSent"
	EventTypeQuoteViewed       = "QuoteViewed"
	EventTypeQuoteAccepted     = "QuoteAccepted"
	EventTypeQuoteRejected     = "QuoteRejected"
	EventTypeQuoteExpired      = "QuoteExpired"
	EventTypeQuoteConverted    = "QuoteConverted"

	EventTypeInvoiceCreated        = "InvoiceCreated"
	EventTypeInvoiceStatusChanged  = "InvoiceStatusChanged"
	EventTypeInvoiceDetailsUpdated = "InvoiceDetailsUpdated"
	EventTypeInvoiceBalanceChanged = "InvoiceBalanceChanged"
	EventTypeInvoiceCancelled      = "InvoiceCancelled"

	EventTypePaymentRecorded  = "PaymentRecorded"
	EventTypePaymentCancelled = "PaymentCancelled"

	EventTypeCreditNoteIssued    = "CreditNoteIssued"
	EventTypeCreditNoteApplied   = "CreditNoteApplied"
	EventTypeCreditNoteCancelled = "CreditNoteCancelled"

	EventTypeBankAccountCreated      = "BankAccountCreated"
	EventTypeBankTransactionImported = "BankTransactionImported"
	EventTypeBankTransactionMatched  = "BankTransactionReconciled"
)

// DocumentEvent is raised by every finance aggregate state change.
// It carries the document number and resulting status next to the field diff.
type DocumentEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number,omitempty"`
	Status string `json:"status,omitempty"`
}

func newDocumentEvent(eventType, aggType string, id, tenantID uuid.UUID, number, status string, changes shared.Changes) *DocumentEvent {
	return &DocumentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, aggType, id, tenantID, changes),
		Number:          number,
		Status:          status,
	}
}

// money renders a decimal for a field diff; decimals are not comparable with ==
func money(d decimal.Decimal) string {
	return d.String()
}
