package finance

import (
	"strings"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultQuoteValidityDays is used when a quote is created without a validity period
const DefaultQuoteValidityDays = 30

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "DRAFT"
	QuoteStatusSent     QuoteStatus = "SENT"
	QuoteStatusViewed   QuoteStatus = "VIEWED"
	QuoteStatusAccepted QuoteStatus = "ACCEPTED"
	QuoteStatusRejected QuoteStatus = "REJECTED"
	QuoteStatusExpired  QuoteStatus = "EXPIRED"
)

var quoteTransitions = map[QuoteStatus][]QuoteStatus{
	QuoteStatusDraft:    {QuoteStatusSent, QuoteStatusExpired},
	QuoteStatusSent:     {QuoteStatusSent, QuoteStatusViewed, QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired},
	QuoteStatusViewed:   {QuoteStatusAccepted, QuoteStatusRejected, QuoteStatusExpired},
	QuoteStatusAccepted: {},
	QuoteStatusRejected: {},
	QuoteStatusExpired:  {},
}

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	_, ok := quoteTransitions[s]
	return ok
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is possible
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusAccepted || s == QuoteStatusRejected || s == QuoteStatusExpired
}

// IsEditable returns true if items and discount may still change
func (s QuoteStatus) IsEditable() bool {
	return s == QuoteStatusDraft || s == QuoteStatusSent
}

// AllowedTransitions returns the statuses reachable from s
func (s QuoteStatus) AllowedTransitions() []QuoteStatus {
	return quoteTransitions[s]
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	for _, allowed := range quoteTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Quote is a priced proposal to a customer
type Quote struct {
	shared.TenantAggregateRoot
	QuoteNumber          string
	CustomerID           uuid.UUID
	TeamID               uuid.UUID
	VehicleID            *uuid.UUID
	Items                []LineItem
	Currency             valueobject.Currency
	Subtotal             decimal.Decimal
	TaxAmount            decimal.Decimal
	DiscountAmount       decimal.Decimal
	Total                decimal.Decimal
	Status               QuoteStatus
	ValidUntil           time.Time
	Notes                string
	RejectionReason      string
	SentAt               *time.Time
	ViewedAt             *time.Time
	AcceptedAt           *time.Time
	RejectedAt           *time.Time
	ExpiredAt            *time.Time
	ConvertedToInvoiceID *uuid.UUID
	ConvertedAt          *time.Time
}

// NewQuoteParams holds the inputs of quote creation
type NewQuoteParams struct {
	TenantID       uuid.UUID
	CreatedBy      uuid.UUID
	QuoteNumber    string
	CustomerID     uuid.UUID
	TeamID         uuid.UUID
	VehicleID      *uuid.UUID
	Items          []LineItemInput
	DiscountAmount decimal.Decimal
	ValidityDays   int
	Currency       valueobject.Currency
	Notes          string
	Now            time.Time
}

// NewQuote creates a DRAFT quote with computed totals
func NewQuote(calc *Calculator, p NewQuoteParams) (*Quote, error) {
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewValidationError("CUSTOMER_REQUIRED", "customer is required")
	}
	if p.TeamID == uuid.Nil {
		return nil, shared.NewValidationError("TEAM_REQUIRED", "team is required")
	}
	if strings.TrimSpace(p.QuoteNumber) == "" {
		return nil, shared.NewValidationError("NUMBER_REQUIRED", "quote number is required")
	}
	if p.ValidityDays < 0 {
		return nil, shared.NewValidationError("INVALID_VALIDITY", "validity days cannot be negative")
	}
	validityDays := p.ValidityDays
	if validityDays == 0 {
		validityDays = DefaultQuoteValidityDays
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

	q := &Quote{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(p.TenantID, p.CreatedBy, p.Now),
		QuoteNumber:         p.QuoteNumber,
		CustomerID:          p.CustomerID,
		TeamID:              p.TeamID,
		VehicleID:           p.VehicleID,
		Items:               items,
		Currency:            currency,
		Status:              QuoteStatusDraft,
		ValidUntil:          p.Now.AddDate(0, 0, validityDays),
		Notes:               p.Notes,
	}
	q.applyTotals(totals)

	changes := shared.Changes{}.
		Created("quoteNumber", q.QuoteNumber).
		Created("status", string(q.Status)).
		Created("total", money(q.Total))
	q.AddDomainEvent(q.event(EventTypeQuoteCreated, changes))
	return q, nil
}

func (q *Quote) applyTotals(t Totals) {
	q.Subtotal = t.Subtotal
	q.TaxAmount = t.TaxAmount
	q.DiscountAmount = t.DiscountAmount
	q.Total = t.Total
}

func (q *Quote) event(eventType string, changes shared.Changes) *DocumentEvent {
	return newDocumentEvent(eventType, AggregateTypeQuote, q.ID, q.TenantID, q.QuoteNumber, string(q.Status), changes)
}

// IsExpiredAt reports whether the validity deadline has passed for a non-terminal quote
func (q *Quote) IsExpiredAt(now time.Time) bool {
	if q.Status == QuoteStatusExpired {
		return true
	}
	return !q.Status.IsTerminal() && now.After(q.ValidUntil)
}

// IsConverted reports whether an invoice was already created from this quote
func (q *Quote) IsConverted() bool {
	return q.ConvertedToInvoiceID != nil
}

// RefreshExpiry moves a stale, non-terminal quote to EXPIRED.
// Expiry is evaluated lazily whenever the quote is loaded; it returns true when
// the status changed and the quote must be persisted.
func (q *Quote) RefreshExpiry(now time.Time) bool {
	if q.Status.IsTerminal() || !now.After(q.ValidUntil) {
		return false
	}
	old := q.Status
	q.Status = QuoteStatusExpired
	q.ExpiredAt = &now
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteExpired, shared.Changes{}.Set("status", string(old), string(q.Status))))
	return true
}

// guardActive rejects operations on converted or expired quotes
func (q *Quote) guardActive(now time.Time) error {
	if q.IsConverted() {
		return shared.NewStateConflictError(CodeAlreadyConverted, "quote has already been converted to an invoice").
			WithDetail("existingInvoiceId", q.ConvertedToInvoiceID.String())
	}
	q.RefreshExpiry(now)
	if q.Status == QuoteStatusExpired {
		return shared.NewStateConflictError(CodeQuoteExpired, "quote has expired").
			WithDetail("currentStatus", string(q.Status)).
			WithDetail("validUntil", q.ValidUntil)
	}
	return nil
}

func (q *Quote) transitionTo(target QuoteStatus) error {
	if !q.Status.CanTransitionTo(target) {
		return invalidTransition("quote", q.Status, target, q.Status.AllowedTransitions())
	}
	return nil
}

// ReplaceItems swaps the whole item list and recomputes totals.
// Only DRAFT and SENT quotes accept edits.
func (q *Quote) ReplaceItems(calc *Calculator, inputs []LineItemInput, discount decimal.Decimal, now time.Time) error {
	if err := q.guardActive(now); err != nil {
		return err
	}
	if !q.Status.IsEditable() {
		return shared.NewStateConflictError("QUOTE_NOT_EDITABLE", "quote can only be edited while DRAFT or SENT").
			WithDetail("currentStatus", string(q.Status))
	}

	items := newLineItems(inputs)
	totals, err := calc.ComputeItems(items, discount, q.Currency)
	if err != nil {
		return err
	}

	changes := shared.Changes{}.
		Set("subtotal", money(q.Subtotal), money(totals.Subtotal)).
		Set("taxAmount", money(q.TaxAmount), money(totals.TaxAmount)).
		Set("discountAmount", money(q.DiscountAmount), money(totals.DiscountAmount)).
		Set("total", money(q.Total), money(totals.Total)).
		Set("itemCount", len(q.Items), len(items))

	q.Items = items
	q.applyTotals(totals)
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteItemsUpdated, changes))
	return nil
}

// Send marks the quote as sent (DRAFT/SENT -> SENT), stamping sentAt
func (q *Quote) Send(now time.Time) error {
	if err := q.guardActive(now); err != nil {
		return err
	}
	if err := q.transitionTo(QuoteStatusSent); err != nil {
		return err
	}
	changes := shared.Changes{}.Set("status", string(q.Status), string(QuoteStatusSent))
	if q.SentAt != nil {
		changes.Set("sentAt", q.SentAt.Format(time.RFC3339), now.Format(time.RFC3339))
	} else {
		changes.Created("sentAt", now.Format(time.RFC3339))
	}
	q.Status = QuoteStatusSent
	q.SentAt = &now
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteSent, changes))
	return nil
}

// MarkViewed records the first read of a SENT quote by someone other than its owner.
// It is a side effect of a read and idempotent: viewedAt is stamped once.
// Returns true when the quote changed.
func (q *Quote) MarkViewed(viewerID uuid.UUID, now time.Time) bool {
	if q.Status != QuoteStatusSent || q.ViewedAt != nil || q.IsCreatedBy(viewerID) {
		return false
	}
	if q.IsExpiredAt(now) {
		return false
	}
	q.Status = QuoteStatusViewed
	q.ViewedAt = &now
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteViewed, shared.Changes{}.
		Set("status", string(QuoteStatusSent), string(QuoteStatusViewed)).
		Created("viewedAt", now.Format(time.RFC3339))))
	return true
}

// Accept records the customer's acceptance
func (q *Quote) Accept(now time.Time) error {
	if err := q.guardActive(now); err != nil {
		return err
	}
	if err := q.transitionTo(QuoteStatusAccepted); err != nil {
		return err
	}
	old := q.Status
	q.Status = QuoteStatusAccepted
	q.AcceptedAt = &now
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteAccepted, shared.Changes{}.Set("status", string(old), string(q.Status))))
	return nil
}

// Reject records the customer's refusal
func (q *Quote) Reject(reason string, now time.Time) error {
	if err := q.guardActive(now); err != nil {
		return err
	}
	if err := q.transitionTo(QuoteStatusRejected); err != nil {
		return err
	}
	old := q.Status
	q.Status = QuoteStatusRejected
	q.RejectedAt = &now
	q.RejectionReason = strings.TrimSpace(reason)
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteRejected, shared.Changes{}.
		Set("status", string(old), string(q.Status)).
		Set("rejectionReason", "", q.RejectionReason)))
	return nil
}

// CanConvert checks that an invoice may be created from the quote
func (q *Quote) CanConvert(now time.Time) error {
	if q.IsConverted() {
		return shared.NewStateConflictError(CodeAlreadyConverted, "quote has already been converted to an invoice").
			WithDetail("existingInvoiceId", q.ConvertedToInvoiceID.String())
	}
	if q.Status != QuoteStatusAccepted {
		return shared.NewStateConflictError(CodeQuoteNotAccepted, "only ACCEPTED quotes can be converted").
			WithDetail("currentStatus", string(q.Status))
	}
	if now.After(q.ValidUntil) {
		return shared.NewStateConflictError(CodeQuoteExpired, "quote has expired").
			WithDetail("validUntil", q.ValidUntil)
	}
	return nil
}

// MarkConverted links the quote to the invoice created from it. The link is permanent.
func (q *Quote) MarkConverted(invoiceID uuid.UUID, now time.Time) error {
	if err := q.CanConvert(now); err != nil {
		return err
	}
	q.ConvertedToInvoiceID = &invoiceID
	q.ConvertedAt = &now
	q.Touch(now)
	q.AddDomainEvent(q.event(EventTypeQuoteConverted, shared.Changes{}.Created("convertedToInvoiceId", invoiceID.String())))
	return nil
}

// VerifyTotals recomputes the totals from the items and compares them with the stored values
func (q *Quote) VerifyTotals(calc *Calculator) (Totals, bool, error) {
	items := copyLineItems(q.Items)
	totals, err := calc.ComputeItems(items, q.DiscountAmount, q.Currency)
	if err != nil {
		return Totals{}, false, err
	}
	ok := totals.Subtotal.Equal(q.Subtotal) &&
		totals.TaxAmount.Equal(q.TaxAmount) &&
		totals.DiscountAmount.Equal(q.DiscountAmount) &&
		totals.Total.Equal(q.Total)
	return totals, ok, nil
}
