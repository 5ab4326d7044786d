package finance

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultMatchWindowDays is how far apart a payment and a bank row may be dated
const DefaultMatchWindowDays = 3

// DefaultReconciliationBatchSize is the page size of an auto run
const DefaultReconciliationBatchSize = 100

// DefaultReconciliationMaxPages caps the pages one auto run walks through
const DefaultReconciliationMaxPages = 50

// StatementCursor is the keyset position of a bank row in statement order:
// transaction date, then creation time, then ID.
type StatementCursor struct {
	TransactionDate time.Time
	CreatedAt       time.Time
	ID              uuid.UUID
}

// CursorOf returns the keyset position of tx
func CursorOf(tx *BankTransaction) StatementCursor {
	return StatementCursor{TransactionDate: tx.TransactionDate, CreatedAt: tx.CreatedAt, ID: tx.ID}
}

// ReconciliationMode selects how transactions are paired with payments
type ReconciliationMode string

const (
	ReconciliationModeAuto   ReconciliationMode = "AUTO"
	ReconciliationModeManual ReconciliationMode = "MANUAL"
)

// MatchOutcome is the per-item result of a reconciliation run
type MatchOutcome string

const (
	MatchOutcomeMatched    MatchOutcome = "matched"
	MatchOutcomeNoMatch    MatchOutcome = "no_match"
	MatchOutcomeReconciled MatchOutcome = "reconciled"
	MatchOutcomeFailed     MatchOutcome = "failed"
)

// ReconciliationDetail reports what happened to one transaction (or manual pair)
type ReconciliationDetail struct {
	TransactionID uuid.UUID    `json:"transaction_id"`
	PaymentID     *uuid.UUID   `json:"payment_id,omitempty"`
	Outcome       MatchOutcome `json:"outcome"`
	Error         string       `json:"error,omitempty"`
	ErrorCode     string       `json:"error_code,omitempty"`
}

// ReconciliationReport summarizes a reconciliation run
type ReconciliationReport struct {
	Mode       ReconciliationMode     `json:"mode"`
	Reconciled int                    `json:"reconciled"`
	Failed     int                    `json:"failed"`
	Details    []ReconciliationDetail `json:"details"`
	// Truncated is set when an auto run used its whole page budget
	Truncated bool `json:"truncated,omitempty"`
}

// Add appends a detail and updates the counters
func (r *ReconciliationReport) Add(d ReconciliationDetail) {
	switch d.Outcome {
	case MatchOutcomeMatched, MatchOutcomeReconciled:
		r.Reconciled++
	default:
		r.Failed++
	}
	r.Details = append(r.Details, d)
}

// PaymentMatcher pairs bank transactions with candidate payments.
// Matching is exact on amount and tolerant on date; the earliest candidate wins.
type PaymentMatcher struct {
	windowDays int
}

// NewPaymentMatcher creates a matcher with a ±windowDays date tolerance
func NewPaymentMatcher(windowDays int) *PaymentMatcher {
	if windowDays <= 0 {
		windowDays = DefaultMatchWindowDays
	}
	return &PaymentMatcher{windowDays: windowDays}
}

// WindowDays returns the date tolerance
func (m *PaymentMatcher) WindowDays() int {
	return m.windowDays
}

// Window returns the payment date range to search for a transaction
func (m *PaymentMatcher) Window(tx *BankTransaction) (from, to time.Time) {
	day := truncateDay(tx.TransactionDate.UTC())
	return day.AddDate(0, 0, -m.windowDays), day.AddDate(0, 0, m.windowDays+1)
}

// Match returns the first eligible candidate for the transaction, or nil.
// Candidates in claimed are skipped so one payment is never used twice in a batch.
func (m *PaymentMatcher) Match(tx *BankTransaction, candidates []Payment, claimed map[uuid.UUID]bool) *Payment {
	ordered := make([]*Payment, 0, len(candidates))
	for i := range candidates {
		ordered = append(ordered, &candidates[i])
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		if !ordered[a].PaymentDate.Equal(ordered[b].PaymentDate) {
			return ordered[a].PaymentDate.Before(ordered[b].PaymentDate)
		}
		return ordered[a].CreatedAt.Before(ordered[b].CreatedAt)
	})
	for _, p := range ordered {
		if claimed[p.ID] || !p.IsCompleted() {
			continue
		}
		if !p.Amount.Equal(tx.Amount) {
			continue
		}
		if !p.WithinDays(tx.TransactionDate, m.windowDays) {
			continue
		}
		return p
	}
	return nil
}
