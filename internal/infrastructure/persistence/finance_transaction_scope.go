package persistence

import (
	"context"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) QuoteRepo() finance.QuoteRepository {
	return NewGormQuoteRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceRepo() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) CreditNoteRepo() finance.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

func (r *gormTransactionalRepositories) BankAccountRepo() finance.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) BankTransactionRepo() finance.BankTransactionRepository {
	return NewGormBankTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) AuditRepo() finance.AuditRepository {
	return NewGormAuditRepository(r.tx)
}

// Sequences returns the number allocator; its counter bump commits with the document.
func (r *gormTransactionalRepositories) Sequences() finance.SequenceAllocator {
	return NewGormSequenceAllocator(r.tx)
}

func (r *gormTransactionalRepositories) Parties() finance.PartyDirectory {
	return NewGormPartyDirectory(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfinance.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appfinance.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
