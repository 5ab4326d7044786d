package finance

import (
	"strings"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount is a dealership account whose statement rows are reconciled
type BankAccount struct {
	shared.TenantAggregateRoot
	Name          string
	BankName      string
	AccountNumber string
	Currency      valueobject.Currency
	IsActive      bool
}

// NewBankAccount creates an active bank account
func NewBankAccount(tenantID, createdBy uuid.UUID, name, bankName, accountNumber string, currency valueobject.Currency, now time.Time) (*BankAccount, error) {
	name = strings.TrimSpace(name)
	accountNumber = strings.TrimSpace(accountNumber)
	if name == "" {
		return nil, shared.NewValidationError("NAME_REQUIRED", "bank account name is required")
	}
	if accountNumber == "" {
		return nil, shared.NewValidationError("ACCOUNT_NUMBER_REQUIRED", "account number is required")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	acc := &BankAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy, now),
		Name:                name,
		BankName:            strings.TrimSpace(bankName),
		AccountNumber:       accountNumber,
		Currency:            currency,
		IsActive:            true,
	}
	acc.AddDomainEvent(newDocumentEvent(EventTypeBankAccountCreated, AggregateTypeBankAccount, acc.ID, tenantID, acc.AccountNumber, "", shared.Changes{}.
		Created("name", acc.Name).
		Created("accountNumber", acc.AccountNumber)))
	return acc, nil
}

// BankTransaction is one row of a bank statement.
// A reconciled transaction references exactly one payment.
type BankTransaction struct {
	shared.TenantAggregateRoot
	BankAccountID   uuid.UUID
	TransactionDate time.Time
	Amount          decimal.Decimal
	Description     string
	Reference       string
	Reconciled      bool
	PaymentID       *uuid.UUID
	ReconciledAt    *time.Time
	ReconciledBy    *uuid.UUID
}

// BankTransactionInput is one imported statement row
type BankTransactionInput struct {
	TransactionDate time.Time
	Amount          decimal.Decimal
	Description     string
	Reference       string
}

// NewBankTransaction creates an unreconciled statement row for the account
func NewBankTransaction(acc *BankAccount, createdBy uuid.UUID, in BankTransactionInput, now time.Time) (*BankTransaction, error) {
	if in.Amount.IsZero() {
		return nil, shared.NewValidationError(CodeInvalidAmount, "transaction amount cannot be zero")
	}
	if in.TransactionDate.IsZero() {
		return nil, shared.NewValidationError("DATE_REQUIRED", "transaction date is required")
	}
	tx := &BankTransaction{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(acc.TenantID, createdBy, now),
		BankAccountID:       acc.ID,
		TransactionDate:     in.TransactionDate,
		Amount:              in.Amount,
		Description:         strings.TrimSpace(in.Description),
		Reference:           strings.TrimSpace(in.Reference),
	}
	tx.AddDomainEvent(tx.event(EventTypeBankTransactionImported, shared.Changes{}.
		Created("amount", money(tx.Amount)).
		Created("transactionDate", tx.TransactionDate.Format(time.DateOnly))))
	return tx, nil
}

func (t *BankTransaction) event(eventType string, changes shared.Changes) *DocumentEvent {
	status := "UNRECONCILED"
	if t.Reconciled {
		status = "RECONCILED"
	}
	return newDocumentEvent(eventType, AggregateTypeBankTransaction, t.ID, t.TenantID, t.Reference, status, changes)
}

// Reconcile links the transaction to a payment. Both sides must already have been
// validated against each other (see CheckPaymentLink).
func (t *BankTransaction) Reconcile(paymentID, actorID uuid.UUID, now time.Time) error {
	if t.Reconciled {
		return shared.NewStateConflictError(CodeAlreadyReconciled, "bank transaction is already reconciled").
			WithDetail("paymentId", t.PaymentID.String())
	}
	t.Reconciled = true
	t.PaymentID = &paymentID
	t.ReconciledAt = &now
	if actorID != uuid.Nil {
		t.ReconciledBy = &actorID
	}
	t.Touch(now)
	t.AddDomainEvent(t.event(EventTypeBankTransactionMatched, shared.Changes{}.
		Set("reconciled", false, true).
		Created("paymentId", paymentID.String())))
	return nil
}

// CheckPaymentLink validates that the payment may be linked to this transaction
func (t *BankTransaction) CheckPaymentLink(p *Payment, alreadyLinked bool) error {
	if t.Reconciled {
		return shared.NewStateConflictError(CodeAlreadyReconciled, "bank transaction is already reconciled")
	}
	if !p.IsCompleted() {
		return shared.NewStateConflictError(CodePaymentNotCompleted, "only completed payments can be reconciled").
			WithDetail("currentStatus", string(p.Status))
	}
	if alreadyLinked {
		return shared.NewStateConflictError(CodePaymentAlreadyLinked, "payment is already linked to a reconciled bank transaction")
	}
	return nil
}
