package finance

import "github.com/dealerdesk/backend/internal/domain/finance"

// Services bundles the finance use cases for the transport layer
type Services struct {
	Quotes         *QuoteService
	Invoices       *InvoiceService
	Payments       *PaymentService
	CreditNotes    *CreditNoteService
	Reconciliation *ReconciliationService
	Integrity      *IntegrityService
	Audit          *AuditService
}

// NewServices creates every finance service over the same dependencies
func NewServices(deps Dependencies, vehicles finance.VehicleStatusUpdater, locker Locker) *Services {
	return &Services{
		Quotes:         NewQuoteService(deps),
		Invoices:       NewInvoiceService(deps, vehicles),
		Payments:       NewPaymentService(deps),
		CreditNotes:    NewCreditNoteService(deps),
		Reconciliation: NewReconciliationService(deps, locker),
		Integrity:      NewIntegrityService(deps),
		Audit:          NewAuditService(deps),
	}
}
