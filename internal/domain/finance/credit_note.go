package finance

import (
	"strings"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteStatus represents the status of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusDraft     CreditNoteStatus = "DRAFT"
	CreditNoteStatusIssued    CreditNoteStatus = "ISSUED"
	CreditNoteStatusApplied   CreditNoteStatus = "APPLIED"
	CreditNoteStatusCancelled CreditNoteStatus = "CANCELLED"
)

var creditNoteTransitions = map[CreditNoteStatus][]CreditNoteStatus{
	CreditNoteStatusDraft:     {CreditNoteStatusIssued, CreditNoteStatusApplied, CreditNoteStatusCancelled},
	CreditNoteStatusIssued:    {CreditNoteStatusApplied, CreditNoteStatusCancelled},
	CreditNoteStatusApplied:   {CreditNoteStatusCancelled},
	CreditNoteStatusCancelled: {},
}

// IsValid checks if the status is a valid CreditNoteStatus
func (s CreditNoteStatus) IsValid() bool {
	_, ok := creditNoteTransitions[s]
	return ok
}

// String returns the string representation of CreditNoteStatus
func (s CreditNoteStatus) String() string {
	return string(s)
}

// CanApply returns true if the note can be applied to its invoice
func (s CreditNoteStatus) CanApply() bool {
	return s == CreditNoteStatusDraft || s == CreditNoteStatusIssued
}

// AllowedTransitions returns the statuses reachable from s
func (s CreditNoteStatus) AllowedTransitions() []CreditNoteStatus {
	return creditNoteTransitions[s]
}

// CreditNote is a negative adjustment against an invoice balance (nota de crédito).
// Once APPLIED it behaves like a payment; cancelling it afterwards reverses that effect.
type CreditNote struct {
	shared.TenantAggregateRoot
	CreditNoteNumber string
	InvoiceID        uuid.UUID
	CustomerID       uuid.UUID
	Amount           decimal.Decimal
	Currency         valueobject.Currency
	Reason           string
	Status           CreditNoteStatus
	IssuedAt         *time.Time
	AppliedAt        *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// RemainingCredit returns how much more credit can be issued against the invoice
// given the notes that already exist for it
func RemainingCredit(inv *Invoice, existing []CreditNote) decimal.Decimal {
	used := decimal.Zero
	for _, cn := range existing {
		if cn.Status != CreditNoteStatusCancelled {
			used = used.Add(cn.Amount)
		}
	}
	return inv.Total.Sub(used)
}

// NewCreditNoteParams holds the inputs of credit note issuance
type NewCreditNoteParams struct {
	CreditNoteNumber string
	Amount           decimal.Decimal
	Reason           string
	Issue            bool
	CreatedBy        uuid.UUID
	Now              time.Time
}

// NewCreditNote creates a credit note against the invoice. The sum of non-cancelled
// notes for an invoice may never exceed the invoice total.
func NewCreditNote(inv *Invoice, existing []CreditNote, p NewCreditNoteParams) (*CreditNote, error) {
	if err := positiveAmount("credit amount", p.Amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Reason) == "" {
		return nil, shared.NewValidationError("REASON_REQUIRED", "a reason is required for a credit note")
	}
	if strings.TrimSpace(p.CreditNoteNumber) == "" {
		return nil, shared.NewValidationError("NUMBER_REQUIRED", "credit note number is required")
	}
	if inv.Status == InvoiceStatusCancelled {
		return nil, shared.NewStateConflictError(CodeInvoiceCancelled, "cannot issue a credit note for a cancelled invoice").
			WithDetail("currentStatus", string(inv.Status))
	}
	remaining := RemainingCredit(inv, existing)
	if p.Amount.GreaterThan(remaining) {
		return nil, shared.NewStateConflictError(CodeExceedsRemainingBalance, "credit amount exceeds the remaining creditable balance of the invoice").
			WithDetail("remainingBalance", money(remaining)).
			WithDetail("invoiceTotal", money(inv.Total))
	}

	cn := &CreditNote{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(inv.TenantID, p.CreatedBy, p.Now),
		CreditNoteNumber:    p.CreditNoteNumber,
		InvoiceID:           inv.ID,
		CustomerID:          inv.CustomerID,
		Amount:              p.Amount,
		Currency:            inv.Currency,
		Reason:              strings.TrimSpace(p.Reason),
		Status:              CreditNoteStatusDraft,
	}
	if p.Issue {
		cn.Status = CreditNoteStatusIssued
		cn.IssuedAt = &p.Now
	}
	cn.AddDomainEvent(cn.event(EventTypeCreditNoteIssued, shared.Changes{}.
		Created("creditNoteNumber", cn.CreditNoteNumber).
		Created("invoiceId", inv.ID.String()).
		Created("amount", money(cn.Amount)).
		Created("status", string(cn.Status))))
	return cn, nil
}

func (c *CreditNote) event(eventType string, changes shared.Changes) *DocumentEvent {
	return newDocumentEvent(eventType, AggregateTypeCreditNote, c.ID, c.TenantID, c.CreditNoteNumber, string(c.Status), changes)
}

// Apply marks the note as applied. The caller applies the amount to the invoice.
func (c *CreditNote) Apply(now time.Time) error {
	if !c.Status.CanApply() {
		return shared.NewStateConflictError(CodeCreditNoteNotApplicable, "credit note can only be applied from DRAFT or ISSUED").
			WithDetail("currentStatus", string(c.Status)).
			WithDetail("allowedStatuses", c.Status.AllowedTransitions())
	}
	old := c.Status
	c.Status = CreditNoteStatusApplied
	c.AppliedAt = &now
	if c.IssuedAt == nil {
		c.IssuedAt = &now
	}
	c.Touch(now)
	c.AddDomainEvent(c.event(EventTypeCreditNoteApplied, shared.Changes{}.
		Set("status", string(old), string(c.Status)).
		Created("appliedAt", now.Format(time.RFC3339))))
	return nil
}

// Cancel voids the note; it reports whether the invoice balance has to be reversed
func (c *CreditNote) Cancel(reason string, now time.Time) (wasApplied bool, err error) {
	if c.Status == CreditNoteStatusCancelled {
		return false, shared.NewStateConflictError(CodeAlreadyCancelled, "credit note is already cancelled").
			WithDetail("currentStatus", string(c.Status))
	}
	wasApplied = c.Status == CreditNoteStatusApplied
	old := c.Status
	c.Status = CreditNoteStatusCancelled
	c.CancelledAt = &now
	c.CancelReason = strings.TrimSpace(reason)
	c.Touch(now)
	c.AddDomainEvent(c.event(EventTypeCreditNoteCancelled, shared.Changes{}.
		Set("status", string(old), string(c.Status)).
		Set("cancelReason", "", c.CancelReason)))
	return wasApplied, nil
}
