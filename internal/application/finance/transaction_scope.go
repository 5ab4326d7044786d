package finance

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
)

// TransactionScope provides transactional access to the finance repositories.
// Every repository obtained inside Execute shares one database transaction, so a
// document write, the invoice balance it changes, its number allocation and its
// audit entries commit or roll back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all finance repositories within a transaction.
type TransactionalRepositories interface {
	QuoteRepo() finance.QuoteRepository
	InvoiceRepo() finance.InvoiceRepository
	PaymentRepo() finance.PaymentRepository
	CreditNoteRepo() finance.CreditNoteRepository
	BankAccountRepo() finance.BankAccountRepository
	BankTransactionRepo() finance.BankTransactionRepository
	AuditRepo() finance.AuditRepository
	// Sequences allocates document numbers inside the current transaction
	Sequences() finance.SequenceAllocator
	// Parties resolves customer and team references
	Parties() finance.PartyDirectory
}
