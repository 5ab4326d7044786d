package finance

import (
	"strings"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodFinancing    PaymentMethod = "FINANCING"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard,
		PaymentMethodDebitCard, PaymentMethodCheck, PaymentMethodFinancing, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is money received against exactly one invoice
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber string
	InvoiceID     uuid.UUID
	CustomerID    uuid.UUID
	Amount        decimal.Decimal
	Currency      valueobject.Currency
	Method        PaymentMethod
	Status        PaymentStatus
	Reference     string
	PaymentDate   time.Time
	Notes         string
	RefundedAt    *time.Time
	RefundReason  string
}

// NewPaymentParams holds the inputs of payment creation
type NewPaymentParams struct {
	PaymentNumber string
	Amount        decimal.Decimal
	Method        PaymentMethod
	Reference     string
	PaymentDate   *time.Time
	Notes         string
	CreatedBy     uuid.UUID
	Now           time.Time
}

// NewPayment creates a COMPLETED payment for the invoice. The caller is responsible
// for applying the amount to the invoice in the same transaction.
func NewPayment(inv *Invoice, p NewPaymentParams) (*Payment, error) {
	if err := positiveAmount("payment amount", p.Amount); err != nil {
		return nil, err
	}
	if !p.Method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD", "unknown payment method: "+string(p.Method))
	}
	if strings.TrimSpace(p.PaymentNumber) == "" {
		return nil, shared.NewValidationError("NUMBER_REQUIRED", "payment number is required")
	}
	paymentDate := p.Now
	if p.PaymentDate != nil {
		paymentDate = *p.PaymentDate
	}
	if paymentDate.After(p.Now.Add(24 * time.Hour)) {
		return nil, shared.NewValidationError("INVALID_PAYMENT_DATE", "payment date cannot be in the future")
	}

	pay := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(inv.TenantID, p.CreatedBy, p.Now),
		PaymentNumber:       p.PaymentNumber,
		InvoiceID:           inv.ID,
		CustomerID:          inv.CustomerID,
		Amount:              p.Amount,
		Currency:            inv.Currency,
		Method:              p.Method,
		Status:              PaymentStatusCompleted,
		Reference:           strings.TrimSpace(p.Reference),
		PaymentDate:         paymentDate,
		Notes:               p.Notes,
	}
	pay.AddDomainEvent(pay.event(EventTypePaymentRecorded, shared.Changes{}.
		Created("paymentNumber", pay.PaymentNumber).
		Created("invoiceId", inv.ID.String()).
		Created("amount", money(pay.Amount)).
		Created("method", string(pay.Method)).
		Created("status", string(pay.Status))))
	return pay, nil
}

func (p *Payment) event(eventType string, changes shared.Changes) *DocumentEvent {
	return newDocumentEvent(eventType, AggregateTypePayment, p.ID, p.TenantID, p.PaymentNumber, string(p.Status), changes)
}

// IsCompleted reports whether the payment counts toward the invoice balance
func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// Refund cancels the payment. REFUNDED is terminal.
func (p *Payment) Refund(reason string, now time.Time) error {
	if p.Status == PaymentStatusRefunded {
		return shared.NewStateConflictError(CodeAlreadyRefunded, "payment has already been cancelled").
			WithDetail("currentStatus", string(p.Status))
	}
	if p.Status != PaymentStatusCompleted {
		return shared.NewStateConflictError(CodePaymentNotCompleted, "only completed payments can be cancelled").
			WithDetail("currentStatus", string(p.Status))
	}
	old := p.Status
	p.Status = PaymentStatusRefunded
	p.RefundedAt = &now
	p.RefundReason = strings.TrimSpace(reason)
	p.Touch(now)
	p.AddDomainEvent(p.event(EventTypePaymentCancelled, shared.Changes{}.
		Set("status", string(old), string(p.Status)).
		Set("refundReason", "", p.RefundReason)))
	return nil
}

// WithinDays reports whether the payment date lies within ±days of t, compared by calendar day
func (p *Payment) WithinDays(t time.Time, days int) bool {
	diff := truncateDay(p.PaymentDate.UTC()).Sub(truncateDay(t.UTC()))
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}
