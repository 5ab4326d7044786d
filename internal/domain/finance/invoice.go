package finance

import (
	"strings"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultPaymentTermDays is the due-date offset used when none is given
const DefaultPaymentTermDays = 30

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusUnpaid        InvoiceStatus = "UNPAID"
	InvoiceStatusSent          InvoiceStatus = "SENT"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// invoiceTransitions is the complete table of explicit status changes
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:         {InvoiceStatusUnpaid, InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusUnpaid:        {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusSent:          {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusPartiallyPaid: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:       {InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:          {},
	InvoiceStatusCancelled:     {},
}

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true for PAID and CANCELLED
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// AllowedTransitions returns the statuses reachable from s
func (s InvoiceStatus) AllowedTransitions() []InvoiceStatus {
	return invoiceTransitions[s]
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanReceivePayment returns true if a payment may be recorded against the invoice
func (s InvoiceStatus) CanReceivePayment() bool {
	return s != InvoiceStatusCancelled && s != InvoiceStatusPaid
}

// IsOverdueCandidate returns true if the status can be flagged overdue
func (s InvoiceStatus) IsOverdueCandidate() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusSent || s == InvoiceStatusPartiallyPaid
}

// Invoice is a binding financial document with a payment balance.
// AmountDue always equals Total - AmountPaid.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber  string
	CustomerID     uuid.UUID
	TeamID         uuid.UUID
	VehicleID      *uuid.UUID
	SourceQuoteID  *uuid.UUID
	Items          []LineItem
	Currency       valueobject.Currency
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	AmountPaid     decimal.Decimal
	AmountDue      decimal.Decimal
	Status         InvoiceStatus
	IssueDate      time.Time
	DueDate        time.Time
	Notes          string
	Terms          string
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string
}

// NewInvoiceParams holds the inputs of manual invoice creation
type NewInvoiceParams struct {
	TenantID       uuid.UUID
	CreatedBy      uuid.UUID
	InvoiceNumber  string
	CustomerID     uuid.UUID
	TeamID         uuid.UUID
	VehicleID      *uuid.UUID
	Items          []LineItemInput
	DiscountAmount decimal.Decimal
	Currency       valueobject.Currency
	DueDate        *time.Time
	Notes          string
	Terms          string
	Now            time.Time
}

// NewInvoice creates a DRAFT invoice from raw items
func NewInvoice(calc *Calculator, p NewInvoiceParams) (*Invoice, error) {
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("CUSTOMER_REQUIRED", "customer is required")
	}
	if p.TeamID == uuid.Nil {
		return nil, shared.NewValidationError("TEAM_REQUIRED", "team is required")
	}
	if strings.TrimSpace(p.InvoiceNumber) == "" {
		return nil, shared.NewValidationError("NUMBER_REQUIRED", "invoice number is required")
	}
	currency := p.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	items := newLineItems(p.Items)
	totals, err := calc.ComputeItems(items, p.DiscountAmount, currency)
	if err != nil {
		return nil, err
	}
	dueDate, err := resolveDueDate(p.Now, p.DueDate)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(p.TenantID, p.CreatedBy, p.Now),
		InvoiceNumber:       p.InvoiceNumber,
		CustomerID:          p.CustomerID,
		TeamID:              p.TeamID,
		VehicleID:           p.VehicleID,
		Items:               items,
		Currency:            currency,
		Status:              InvoiceStatusDraft,
		IssueDate:           p.Now,
		DueDate:             dueDate,
		Notes:               p.Notes,
		Terms:               p.Terms,
	}
	inv.setTotals(totals)
	inv.AddDomainEvent(inv.createdEvent())
	return inv, nil
}

// NewInvoiceFromQuote creates an UNPAID invoice copying the quote's items and totals verbatim
func NewInvoiceFromQuote(q *Quote, invoiceNumber string, createdBy uuid.UUID, dueDate *time.Time, now time.Time) (*Invoice, error) {
	if err := q.CanConvert(now); err != nil {
		return nil, err
	}
	if strings.TrimSpace(invoiceNumber) == "" {
		return nil, shared.NewValidationError("NUMBER_REQUIRED", "invoice number is required")
	}
	due, err := resolveDueDate(now, dueDate)
	if err != nil {
		return nil, err
	}
	quoteID := q.ID
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(q.TenantID, createdBy, now),
		InvoiceNumber:       invoiceNumber,
		CustomerID:          q.CustomerID,
		TeamID:              q.TeamID,
		VehicleID:           q.VehicleID,
		SourceQuoteID:       &quoteID,
		Items:               copyLineItems(q.Items),
		Currency:            q.Currency,
		Status:              InvoiceStatusUnpaid,
		IssueDate:           now,
		DueDate:             due,
		Notes:               q.Notes,
	}
	inv.setTotals(Totals{
		Subtotal:       q.Subtotal,
		TaxAmount:      q.TaxAmount,
		DiscountAmount: q.DiscountAmount,
		Total:          q.Total,
	})
	ev := inv.createdEvent()
	ev.Diff.Created("sourceQuoteId", quoteID.String())
	inv.AddDomainEvent(ev)
	return inv, nil
}

func resolveDueDate(now time.Time, dueDate *time.Time) (time.Time, error) {
	if dueDate == nil {
		return now.AddDate(0, 0, DefaultPaymentTermDays), nil
	}
	if dueDate.Before(truncateDay(now)) {
		return time.Time{}, shared.NewValidationError("INVALID_DUE_DATE", "due date cannot be in the past")
	}
	return *dueDate, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (i *Invoice) setTotals(t Totals) {
	i.Subtotal = t.Subtotal
	i.TaxAmount = t.TaxAmount
	i.DiscountAmount = t.DiscountAmount
	i.Total = t.Total
	i.AmountPaid = decimal.Zero
	i.AmountDue = t.Total
}

func (i *Invoice) event(eventType string, changes shared.Changes) *DocumentEvent {
	return newDocumentEvent(eventType, AggregateTypeInvoice, i.ID, i.TenantID, i.InvoiceNumber, string(i.Status), changes)
}

func (i *Invoice) createdEvent() *DocumentEvent {
	return i.event(EventTypeInvoiceCreated, shared.Changes{}.
		Created("invoiceNumber", i.InvoiceNumber).
		Created("status", string(i.Status)).
		Created("total", money(i.Total)).
		Created("amountDue", money(i.AmountDue)))
}

// TransitionTo performs an explicit status change checked against the transition table
func (i *Invoice) TransitionTo(target InvoiceStatus, now time.Time) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", "unknown invoice status: "+string(target))
	}
	if target == InvoiceStatusCancelled {
		return i.Cancel("", now)
	}
	if !i.Status.CanTransitionTo(target) {
		return invalidTransition("invoice", i.Status, target, i.Status.AllowedTransitions())
	}
	if target == InvoiceStatusPaid && i.AmountDue.IsPositive() {
		return shared.NewStateConflictError("BALANCE_OUTSTANDING", "invoice still has an outstanding balance").
			WithDetail("remainingBalance", money(i.AmountDue))
	}
	old := i.Status
	i.Status = target
	switch target {
	case InvoiceStatusSent:
		i.SentAt = &now
	case InvoiceStatusPaid:
		i.PaidAt = &now
	}
	i.Touch(now)
	i.AddDomainEvent(i.event(EventTypeInvoiceStatusChanged, shared.Changes{}.Set("status", string(old), string(target))))
	return nil
}

// Send issues a DRAFT invoice to the customer
func (i *Invoice) Send(now time.Time) error {
	return i.TransitionTo(InvoiceStatusSent, now)
}

// Cancel voids the invoice. Only invoices without received money can be cancelled;
// otherwise a credit note has to be issued instead.
func (i *Invoice) Cancel(reason string, now time.Time) error {
	if !i.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return invalidTransition("invoice", i.Status, InvoiceStatusCancelled, i.Status.AllowedTransitions())
	}
	if !i.AmountPaid.IsZero() {
		return shared.NewStateConflictError(CodeHasPayments, "invoice with received payments cannot be cancelled; issue a credit note instead").
			WithDetail("currentStatus", string(i.Status)).
			WithDetail("amountPaid", money(i.AmountPaid))
	}
	old := i.Status
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = strings.TrimSpace(reason)
	i.Touch(now)
	i.AddDomainEvent(i.event(EventTypeInvoiceCancelled, shared.Changes{}.
		Set("status", string(old), string(i.Status)).
		Set("cancelReason", "", i.CancelReason)))
	return nil
}

// InvoiceDetailsUpdate carries the editable header fields; nil means unchanged
type InvoiceDetailsUpdate struct {
	DueDate *time.Time
	Notes   *string
	Terms   *string
}

// UpdateDetails edits due date, notes and terms on any invoice that is not PAID or CANCELLED
func (i *Invoice) UpdateDetails(u InvoiceDetailsUpdate, now time.Time) error {
	if i.Status.IsTerminal() {
		return shared.NewStateConflictError(CodeInvoiceNotEditable, "paid or cancelled invoices cannot be edited").
			WithDetail("currentStatus", string(i.Status))
	}
	changes := shared.Changes{}
	if u.DueDate != nil {
		if u.DueDate.Before(truncateDay(i.IssueDate)) {
			return shared.NewValidationError("INVALID_DUE_DATE", "due date cannot be before the issue date")
		}
		changes.Set("dueDate", i.DueDate.Format(time.DateOnly), u.DueDate.Format(time.DateOnly))
		i.DueDate = *u.DueDate
	}
	if u.Notes != nil {
		changes.Set("notes", i.Notes, *u.Notes)
		i.Notes = *u.Notes
	}
	if u.Terms != nil {
		changes.Set("terms", i.Terms, *u.Terms)
		i.Terms = *u.Terms
	}
	if len(changes) == 0 {
		return nil
	}
	i.Touch(now)
	i.AddDomainEvent(i.event(EventTypeInvoiceDetailsUpdated, changes))
	return nil
}

// MarkOverdue flags an unpaid invoice whose due date has passed. Returns true on change.
func (i *Invoice) MarkOverdue(now time.Time) bool {
	if !i.Status.IsOverdueCandidate() || !now.After(i.DueDate) {
		return false
	}
	old := i.Status
	i.Status = InvoiceStatusOverdue
	i.Touch(now)
	i.AddDomainEvent(i.event(EventTypeInvoiceStatusChanged, shared.Changes{}.Set("status", string(old), string(i.Status))))
	return true
}

// ApplyAmount adds money received (payment or applied credit note) to the balance
// and recomputes the status: PAID when nothing is left due, PARTIALLY_PAID otherwise.
func (i *Invoice) ApplyAmount(amount decimal.Decimal, source string, now time.Time) error {
	if err := positiveAmount("amount", amount); err != nil {
		return err
	}
	if i.Status == InvoiceStatusCancelled {
		return shared.NewStateConflictError(CodeInvoiceCancelled, "invoice is cancelled").
			WithDetail("currentStatus", string(i.Status))
	}
	return i.changeBalance(i.AmountPaid.Add(amount), source, now)
}

// ReverseAmount removes a previously applied amount (refunded payment, cancelled credit note).
// The status falls back to PARTIALLY_PAID, or to SENT once nothing is paid.
func (i *Invoice) ReverseAmount(amount decimal.Decimal, source string, now time.Time) error {
	if err := positiveAmount("amount", amount); err != nil {
		return err
	}
	newPaid := i.AmountPaid.Sub(amount)
	if newPaid.IsNegative() {
		return shared.NewStateConflictError("BALANCE_UNDERFLOW", "reversal exceeds the amount paid on the invoice").
			WithDetail("amountPaid", money(i.AmountPaid))
	}
	return i.changeBalance(newPaid, source, now)
}

func (i *Invoice) changeBalance(newPaid decimal.Decimal, source string, now time.Time) error {
	oldPaid, oldDue, oldStatus := i.AmountPaid, i.AmountDue, i.Status

	i.AmountPaid = newPaid
	i.AmountDue = i.Total.Sub(newPaid)
	switch {
	case !i.AmountDue.IsPositive():
		i.Status = InvoiceStatusPaid
		if oldStatus != InvoiceStatusPaid {
			i.PaidAt = &now
		}
	case !i.AmountPaid.IsPositive():
		i.Status = InvoiceStatusSent
		i.PaidAt = nil
	default:
		i.Status = InvoiceStatusPartiallyPaid
		i.PaidAt = nil
	}

	i.Touch(now)
	changes := shared.Changes{}.
		Set("amountPaid", money(oldPaid), money(i.AmountPaid)).
		Set("amountDue", money(oldDue), money(i.AmountDue)).
		Set("status", string(oldStatus), string(i.Status))
	ev := i.event(EventTypeInvoiceBalanceChanged, changes)
	if source != "" {
		ev.Diff.Created("source", source)
	}
	i.AddDomainEvent(ev)
	return nil
}

// CheckPayable validates a payment amount against the current balance
func (i *Invoice) CheckPayable(amount decimal.Decimal) error {
	if err := positiveAmount("payment amount", amount); err != nil {
		return err
	}
	switch i.Status {
	case InvoiceStatusCancelled:
		return shared.NewStateConflictError(CodeInvoiceCancelled, "cannot record a payment on a cancelled invoice").
			WithDetail("currentStatus", string(i.Status))
	case InvoiceStatusPaid:
		return shared.NewStateConflictError(CodeAlreadyPaid, "invoice is already fully paid").
			WithDetail("currentStatus", string(i.Status)).
			WithDetail("remainingBalance", money(i.AmountDue))
	}
	if amount.GreaterThan(i.AmountDue) {
		return shared.NewStateConflictError(CodeExceedsBalance, "payment amount exceeds the remaining balance").
			WithDetail("currentStatus", string(i.Status)).
			WithDetail("remainingBalance", money(i.AmountDue))
	}
	return nil
}

// CheckBalanceInvariant verifies amountDue = total - amountPaid and amountPaid >= 0
func (i *Invoice) CheckBalanceInvariant() error {
	if i.AmountPaid.IsNegative() {
		return shared.NewInternalError("invoice "+i.InvoiceNumber+" has a negative amount paid", nil)
	}
	if !i.AmountDue.Equal(i.Total.Sub(i.AmountPaid)) {
		return shared.NewInternalError("invoice "+i.InvoiceNumber+" amount due does not match total minus amount paid", nil)
	}
	if i.AmountPaid.IsPositive() && !i.AmountDue.IsPositive() && i.Status != InvoiceStatusPaid {
		return shared.NewInternalError("invoice "+i.InvoiceNumber+" is fully offset but not PAID", nil)
	}
	return nil
}
