package finance

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteFilter defines filtering options for quote queries
type QuoteFilter struct {
	shared.Filter
	CustomerID *uuid.UUID   // Filter by customer
	TeamID     *uuid.UUID   // Filter by team
	Status     *QuoteStatus // Filter by status
	FromDate   *time.Time   // Filter by creation date range start
	ToDate     *time.Time   // Filter by creation date range end
}

// QuoteRepository defines the interface for quote persistence
type QuoteRepository interface {
	// FindByIDForTenant finds a quote (with items) by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindByIDForUpdate loads the quote and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Quote, error)

	// FindAllForTenant lists quotes without items
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter QuoteFilter) ([]Quote, error)

	// CountForTenant counts quotes matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter QuoteFilter) (int64, error)

	// Save creates or updates a quote. Items are replaced as a whole.
	Save(ctx context.Context, quote *Quote) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	TeamID        *uuid.UUID
	SourceQuoteID *uuid.UUID
	Status        *InvoiceStatus
	DueFrom       *time.Time
	DueTo         *time.Time
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice (with items) by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads the invoice and locks its row so balance changes serialize
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindAllForTenant lists invoices without items
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// CountForTenant counts invoices matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// FindOverdueCandidates returns open invoices whose due date is before asOf
	FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, asOf time.Time, limit int) ([]Invoice, error)

	// FindIDsForTenant returns every invoice id of the tenant, used by integrity checks
	FindIDsForTenant(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID  *uuid.UUID
	CustomerID *uuid.UUID
	Status     *PaymentStatus
	Method     *PaymentMethod
	FromDate   *time.Time
	ToDate     *time.Time
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByIDForTenant finds a payment by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByIDForUpdate loads the payment and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByInvoice returns every payment of an invoice, oldest first
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)

	// FindAllForTenant lists payments
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// CountForTenant counts payments matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) (int64, error)

	// FindMatchCandidates returns COMPLETED payments of exactly amount dated in [from, to)
	// that no reconciled bank transaction references yet
	FindMatchCandidates(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, from, to time.Time) ([]Payment, error)

	// Save creates or updates a payment
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock updates a loaded payment only if its stored version is the one it
	// was loaded at; otherwise it returns shared.ErrConcurrencyConflict
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// CreditNoteFilter defines filtering options for credit note queries
type CreditNoteFilter struct {
	shared.Filter
	InvoiceID  *uuid.UUID
	CustomerID *uuid.UUID
	Status     *CreditNoteStatus
}

// CreditNoteRepository defines the interface for credit note persistence
type CreditNoteRepository interface {
	// FindByIDForTenant finds a credit note by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*CreditNote, error)

	// FindByIDForUpdate loads the credit note and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*CreditNote, error)

	// FindByInvoice returns every credit note of an invoice, oldest first
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]CreditNote, error)

	// FindAllForTenant lists credit notes
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter CreditNoteFilter) ([]CreditNote, error)

	// CountForTenant counts credit notes matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter CreditNoteFilter) (int64, error)

	// Save creates or updates a credit note
	Save(ctx context.Context, note *CreditNote) error

	// SaveWithLock updates a loaded credit note only if its stored version is the one
	// it was loaded at; otherwise it returns shared.ErrConcurrencyConflict
	SaveWithLock(ctx context.Context, note *CreditNote) error
}

// BankAccountRepository defines the interface for bank account persistence
type BankAccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankAccount, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]BankAccount, error)
	Save(ctx context.Context, account *BankAccount) error
}

// BankTransactionFilter defines filtering options for bank transaction queries
type BankTransactionFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Reconciled    *bool
}

// BankTransactionRepository defines the interface for bank transaction persistence
type BankTransactionRepository interface {
	// FindByIDForTenant finds a bank transaction by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindByIDForUpdate loads the transaction and locks its row
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*BankTransaction, error)

	// FindUnreconciled returns up to limit unreconciled rows of the account in statement
	// order, starting strictly after the cursor; a nil cursor starts at the oldest row
	FindUnreconciled(ctx context.Context, tenantID, accountID uuid.UUID, after *StatementCursor, limit int) ([]BankTransaction, error)

	// FindReconciled returns every reconciled row of the tenant
	FindReconciled(ctx context.Context, tenantID uuid.UUID) ([]BankTransaction, error)

	// IsPaymentLinked reports whether a reconciled transaction already references the payment
	IsPaymentLinked(ctx context.Context, tenantID, paymentID uuid.UUID) (bool, error)

	// FindAllForTenant lists bank transactions
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BankTransactionFilter) ([]BankTransaction, error)

	// CountForTenant counts bank transactions matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter BankTransactionFilter) (int64, error)

	// Save creates or updates a bank transaction
	Save(ctx context.Context, tx *BankTransaction) error
}

// AuditFilter defines filtering options for audit queries
type AuditFilter struct {
	shared.Filter
	EntityType string
	EntityID   *uuid.UUID
	ActorID    *uuid.UUID
}

// AuditRepository is the append-only store of audit entries
type AuditRepository interface {
	Append(ctx context.Context, entries ...AuditEntry) error
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AuditFilter) ([]AuditEntry, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter AuditFilter) (int64, error)
}

// PartyDirectory resolves the customer and team references of documents
type PartyDirectory interface {
	CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error)
	TeamExists(ctx context.Context, tenantID, teamID uuid.UUID) (bool, error)
}

// VehicleStatus is the sale status pushed to the inventory module
type VehicleStatus string

const (
	VehicleStatusReserved VehicleStatus = "RESERVED"
	VehicleStatusSold     VehicleStatus = "SOLD"
)

// VehicleStatusForDeposit returns SOLD when the deposit covers the total, RESERVED otherwise
func VehicleStatusForDeposit(deposit, total decimal.Decimal) VehicleStatus {
	if deposit.GreaterThanOrEqual(total) {
		return VehicleStatusSold
	}
	return VehicleStatusReserved
}

// VehicleStatusUpdater notifies the inventory module of a vehicle sale.
// Calls are best effort and happen after the financial transaction commits.
type VehicleStatusUpdater interface {
	UpdateStatus(ctx context.Context, tenantID, vehicleID uuid.UUID, status VehicleStatus) error
}
