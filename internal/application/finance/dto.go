package finance

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Shared DTOs ====================

// LineItemRequest is one priced line of a quote or invoice
type LineItemRequest struct {
	Description  string           `json:"description" binding:"required,min=1,max=500"`
	Quantity     decimal.Decimal  `json:"quantity" binding:"decimal_gt0"`
	UnitPrice    decimal.Decimal  `json:"unit_price" binding:"decimal_gte0"`
	TaxRate      *decimal.Decimal `json:"tax_rate"` // nil uses the default VAT rate
	DiscountRate *decimal.Decimal `json:"discount_rate"`
	VehicleID    *uuid.UUID       `json:"vehicle_id"`
}

func toLineItemInputs(items []LineItemRequest, defaultRate decimal.Decimal) []finance.LineItemInput {
	inputs := make([]finance.LineItemInput, len(items))
	for i, it := range items {
		in := finance.LineItemInput{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     defaultRate,
			VehicleID:   it.VehicleID,
		}
		if it.TaxRate != nil {
			in.TaxRate = *it.TaxRate
		}
		if it.DiscountRate != nil {
			in.DiscountRate = *it.DiscountRate
		}
		inputs[i] = in
	}
	return inputs
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// ListRequest carries the paging options common to list endpoints
type ListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at updated_at number total amount due_date payment_date transaction_date occurred_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string `form:"search" binding:"omitempty,max=100"`
}

func (r ListRequest) toShared() shared.Filter {
	f := shared.DefaultFilter()
	if r.Page > 0 {
		f.Page = r.Page
	}
	if r.PageSize > 0 {
		f.PageSize = r.PageSize
	}
	if r.OrderBy != "" {
		f.OrderBy = r.OrderBy
	}
	if r.OrderDir != "" {
		f.OrderDir = r.OrderDir
	}
	f.Search = r.Search
	return f.Normalize()
}

// Paging returns the normalized page and page size of the request
func (r ListRequest) Paging() (page, pageSize int) {
	f := r.toShared()
	return f.Page, f.PageSize
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	Description  string          `json:"description"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	LineTotal    decimal.Decimal `json:"line_total"`
	VehicleID    *uuid.UUID      `json:"vehicle_id,omitempty"`
	SortOrder    int             `json:"sort_order"`
}

func toLineItemResponses(items []finance.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, it := range items {
		out[i] = LineItemResponse(it)
	}
	return out
}

// ==================== Quote DTOs ====================

// CreateQuoteRequest represents a request to create a quote
type CreateQuoteRequest struct {
	CustomerID     uuid.UUID         `json:"customer_id" binding:"required"`
	TeamID         uuid.UUID         `json:"team_id" binding:"required"`
	VehicleID      *uuid.UUID        `json:"vehicle_id"`
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountAmount *decimal.Decimal  `json:"discount_amount"`
	ValidityDays   int               `json:"validity_days" binding:"omitempty,min=1,max=365"`
	Currency       string            `json:"currency" binding:"omitempty,len=3"`
	Notes          string            `json:"notes" binding:"max=2000"`
}

// UpdateQuoteItemsRequest replaces the items of a DRAFT or SENT quote
type UpdateQuoteItemsRequest struct {
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountAmount *decimal.Decimal  `json:"discount_amount"`
}

// RejectQuoteRequest records the customer's refusal
type RejectQuoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// QuoteListFilter represents filter options for the quote list
type QuoteListFilter struct {
	ListRequest
	CustomerID *uuid.UUID `form:"customer_id"`
	TeamID     *uuid.UUID `form:"team_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=DRAFT SENT VIEWED ACCEPTED REJECTED EXPIRED"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// QuoteResponse represents a quote in API responses
type QuoteResponse struct {
	ID                   uuid.UUID          `json:"id"`
	TenantID             uuid.UUID          `json:"tenant_id"`
	QuoteNumber          string             `json:"quote_number"`
	CustomerID           uuid.UUID          `json:"customer_id"`
	TeamID               uuid.UUID          `json:"team_id"`
	VehicleID            *uuid.UUID         `json:"vehicle_id,omitempty"`
	Items                []LineItemResponse `json:"items,omitempty"`
	Currency             string             `json:"currency"`
	Subtotal             decimal.Decimal    `json:"subtotal"`
	TaxAmount            decimal.Decimal    `json:"tax_amount"`
	DiscountAmount       decimal.Decimal    `json:"discount_amount"`
	Total                decimal.Decimal    `json:"total"`
	Status               string             `json:"status"`
	ValidUntil           time.Time          `json:"valid_until"`
	Notes                string             `json:"notes,omitempty"`
	RejectionReason      string             `json:"rejection_reason,omitempty"`
	SentAt               *time.Time         `json:"sent_at,omitempty"`
	ViewedAt             *time.Time         `json:"viewed_at,omitempty"`
	AcceptedAt           *time.Time         `json:"accepted_at,omitempty"`
	RejectedAt           *time.Time         `json:"rejected_at,omitempty"`
	ExpiredAt            *time.Time         `json:"expired_at,omitempty"`
	ConvertedToInvoiceID *uuid.UUID         `json:"converted_to_invoice_id,omitempty"`
	ConvertedAt          *time.Time         `json:"converted_at,omitempty"`
	CreatedBy            *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	Version              int                `json:"version"`
}

// ToQuoteResponse converts a domain Quote to QuoteResponse
func ToQuoteResponse(q *finance.Quote) QuoteResponse {
	return QuoteResponse{
		ID:                   q.ID,
		TenantID:             q.TenantID,
		QuoteNumber:          q.QuoteNumber,
		CustomerID:           q.CustomerID,
		TeamID:               q.TeamID,
		VehicleID:            q.VehicleID,
		Items:                toLineItemResponses(q.Items),
		Currency:             string(q.Currency),
		Subtotal:             q.Subtotal,
		TaxAmount:            q.TaxAmount,
		DiscountAmount:       q.DiscountAmount,
		Total:                q.Total,
		Status:               string(q.Status),
		ValidUntil:           q.ValidUntil,
		Notes:                q.Notes,
		RejectionReason:      q.RejectionReason,
		SentAt:               q.SentAt,
		ViewedAt:             q.ViewedAt,
		AcceptedAt:           q.AcceptedAt,
		RejectedAt:           q.RejectedAt,
		ExpiredAt:            q.ExpiredAt,
		ConvertedToInvoiceID: q.ConvertedToInvoiceID,
		ConvertedAt:          q.ConvertedAt,
		CreatedBy:            q.CreatedBy,
		CreatedAt:            q.CreatedAt,
		UpdatedAt:            q.UpdatedAt,
		Version:              q.Version,
	}
}

// ToQuoteResponses converts a slice of quotes
func ToQuoteResponses(quotes []finance.Quote) []QuoteResponse {
	out := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		out[i] = ToQuoteResponse(&quotes[i])
	}
	return out
}

// ==================== Invoice DTOs ====================

// CreateInvoiceRequest represents a request to create a manual invoice
type CreateInvoiceRequest struct {
	CustomerID     uuid.UUID         `json:"customer_id" binding:"required"`
	TeamID         uuid.UUID         `json:"team_id" binding:"required"`
	VehicleID      *uuid.UUID        `json:"vehicle_id"`
	Items          []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DiscountAmount *decimal.Decimal  `json:"discount_amount"`
	Currency       string            `json:"currency" binding:"omitempty,len=3"`
	DueDate        *time.Time        `json:"due_date"`
	Notes          string            `json:"notes" binding:"max=2000"`
	Terms          string            `json:"terms" binding:"max=2000"`
}

// ConvertQuoteRequest creates an invoice from an accepted quote, optionally with a deposit
type ConvertQuoteRequest struct {
	DueDate          *time.Time       `json:"due_date"`
	DepositAmount    *decimal.Decimal `json:"deposit_amount"`
	DepositMethod    string           `json:"deposit_method" binding:"omitempty,oneof=CASH BANK_TRANSFER CREDIT_CARD DEBIT_CARD CHECK FINANCING OTHER"`
	DepositReference string           `json:"deposit_reference" binding:"max=100"`
}

// TransitionInvoiceRequest requests an explicit status change
type TransitionInvoiceRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT UNPAID SENT PARTIALLY_PAID PAID OVERDUE CANCELLED"`
}

// CancelRequest carries a cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// UpdateInvoiceRequest edits the header fields of an open invoice
type UpdateInvoiceRequest struct {
	DueDate *time.Time `json:"due_date"`
	Notes   *string    `json:"notes" binding:"omitempty,max=2000"`
	Terms   *string    `json:"terms" binding:"omitempty,max=2000"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	ListRequest
	CustomerID    *uuid.UUID `form:"customer_id"`
	TeamID        *uuid.UUID `form:"team_id"`
	SourceQuoteID *uuid.UUID `form:"source_quote_id"`
	Status        string     `form:"status" binding:"omitempty,oneof=DRAFT UNPAID SENT PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	DueFrom       *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo         *time.Time `form:"due_to" time_format:"2006-01-02"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID             uuid.UUID          `json:"id"`
	TenantID       uuid.UUID          `json:"tenant_id"`
	InvoiceNumber  string             `json:"invoice_number"`
	CustomerID     uuid.UUID          `json:"customer_id"`
	TeamID         uuid.UUID          `json:"team_id"`
	VehicleID      *uuid.UUID         `json:"vehicle_id,omitempty"`
	SourceQuoteID  *uuid.UUID         `json:"source_quote_id,omitempty"`
	Items          []LineItemResponse `json:"items,omitempty"`
	Currency       string             `json:"currency"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Total          decimal.Decimal    `json:"total"`
	AmountPaid     decimal.Decimal    `json:"amount_paid"`
	AmountDue      decimal.Decimal    `json:"amount_due"`
	Status         string             `json:"status"`
	IssueDate      time.Time          `json:"issue_date"`
	DueDate        time.Time          `json:"due_date"`
	Notes          string             `json:"notes,omitempty"`
	Terms          string             `json:"terms,omitempty"`
	SentAt         *time.Time         `json:"sent_at,omitempty"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason   string             `json:"cancel_reason,omitempty"`
	CreatedBy      *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	Version        int                `json:"version"`
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *finance.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		TenantID:       inv.TenantID,
		InvoiceNumber:  inv.InvoiceNumber,
		CustomerID:     inv.CustomerID,
		TeamID:         inv.TeamID,
		VehicleID:      inv.VehicleID,
		SourceQuoteID:  inv.SourceQuoteID,
		Items:          toLineItemResponses(inv.Items),
		Currency:       string(inv.Currency),
		Subtotal:       inv.Subtotal,
		TaxAmount:      inv.TaxAmount,
		DiscountAmount: inv.DiscountAmount,
		Total:          inv.Total,
		AmountPaid:     inv.AmountPaid,
		AmountDue:      inv.AmountDue,
		Status:         string(inv.Status),
		IssueDate:      inv.IssueDate,
		DueDate:        inv.DueDate,
		Notes:          inv.Notes,
		Terms:          inv.Terms,
		SentAt:         inv.SentAt,
		PaidAt:         inv.PaidAt,
		CancelledAt:    inv.CancelledAt,
		CancelReason:   inv.CancelReason,
		CreatedBy:      inv.CreatedBy,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
		Version:        inv.Version,
	}
}

// ToInvoiceResponses converts a slice of invoices
func ToInvoiceResponses(invoices []finance.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		out[i] = ToInvoiceResponse(&invoices[i])
	}
	return out
}

// ConversionResponse is the result of converting a quote into an invoice
type ConversionResponse struct {
	Invoice       InvoiceResponse  `json:"invoice"`
	Deposit       *PaymentResponse `json:"deposit,omitempty"`
	VehicleStatus string           `json:"vehicle_status,omitempty"`
}

// OverdueRefreshResponse reports how many invoices were flagged overdue
type OverdueRefreshResponse struct {
	Updated    int         `json:"updated"`
	InvoiceIDs []uuid.UUID `json:"invoice_ids"`
}

// ==================== Payment DTOs ====================

// RecordPaymentRequest represents a request to record a payment against an invoice
type RecordPaymentRequest struct {
	InvoiceID   uuid.UUID       `json:"invoice_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Method      string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CREDIT_CARD DEBIT_CARD CHECK FINANCING OTHER"`
	Reference   string          `json:"reference" binding:"max=100"`
	PaymentDate *time.Time      `json:"payment_date"`
	Notes       string          `json:"notes" binding:"max=1000"`
}

// PaymentListFilter represents filter options for the payment list
type PaymentListFilter struct {
	ListRequest
	InvoiceID  *uuid.UUID `form:"invoice_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED"`
	Method     string     `form:"method" binding:"omitempty,oneof=CASH BANK_TRANSFER CREDIT_CARD DEBIT_CARD CHECK FINANCING OTHER"`
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	Reference     string          `json:"reference,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	Notes         string          `json:"notes,omitempty"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	RefundReason  string          `json:"refund_reason,omitempty"`
	CreatedBy     *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToPaymentResponse converts a domain Payment to PaymentResponse
func ToPaymentResponse(p *finance.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		TenantID:      p.TenantID,
		PaymentNumber: p.PaymentNumber,
		InvoiceID:     p.InvoiceID,
		CustomerID:    p.CustomerID,
		Amount:        p.Amount,
		Currency:      string(p.Currency),
		Method:        string(p.Method),
		Status:        string(p.Status),
		Reference:     p.Reference,
		PaymentDate:   p.PaymentDate,
		Notes:         p.Notes,
		RefundedAt:    p.RefundedAt,
		RefundReason:  p.RefundReason,
		CreatedBy:     p.CreatedBy,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// PaymentResultResponse returns the payment together with the updated invoice
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Invoice InvoiceResponse `json:"invoice"`
}

// ==================== Credit Note DTOs ====================

// IssueCreditNoteRequest represents a request to issue a credit note
type IssueCreditNoteRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	Reason    string          `json:"reason" binding:"required,min=1,max=500"`
	AutoApply bool            `json:"auto_apply"`
}

// CreditNoteListFilter represents filter options for the credit note list
type CreditNoteListFilter struct {
	ListRequest
	InvoiceID  *uuid.UUID `form:"invoice_id"`
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status" binding:"omitempty,oneof=DRAFT ISSUED APPLIED CANCELLED"`
}

// CreditNoteResponse represents a credit note in API responses
type CreditNoteResponse struct {
	ID               uuid.UUID       `json:"id"`
	TenantID         uuid.UUID       `json:"tenant_id"`
	CreditNoteNumber string          `json:"credit_note_number"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Reason           string          `json:"reason"`
	Status           string          `json:"status"`
	IssuedAt         *time.Time      `json:"issued_at,omitempty"`
	AppliedAt        *time.Time      `json:"applied_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	CreatedBy        *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToCreditNoteResponse converts a domain CreditNote to CreditNoteResponse
func ToCreditNoteResponse(cn *finance.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:               cn.ID,
		TenantID:         cn.TenantID,
		CreditNoteNumber: cn.CreditNoteNumber,
		InvoiceID:        cn.InvoiceID,
		CustomerID:       cn.CustomerID,
		Amount:           cn.Amount,
		Currency:         string(cn.Currency),
		Reason:           cn.Reason,
		Status:           string(cn.Status),
		IssuedAt:         cn.IssuedAt,
		AppliedAt:        cn.AppliedAt,
		CancelledAt:      cn.CancelledAt,
		CancelReason:     cn.CancelReason,
		CreatedBy:        cn.CreatedBy,
		CreatedAt:        cn.CreatedAt,
		UpdatedAt:        cn.UpdatedAt,
	}
}

// ToCreditNoteResponses converts a slice of credit notes
func ToCreditNoteResponses(notes []finance.CreditNote) []CreditNoteResponse {
	out := make([]CreditNoteResponse, len(notes))
	for i := range notes {
		out[i] = ToCreditNoteResponse(&notes[i])
	}
	return out
}

// CreditNoteResultResponse returns the note together with the invoice it affects
type CreditNoteResultResponse struct {
	CreditNote CreditNoteResponse `json:"credit_note"`
	Invoice    InvoiceResponse    `json:"invoice"`
}

// ==================== Bank Reconciliation DTOs ====================

// CreateBankAccountRequest represents a request to register a bank account
type CreateBankAccountRequest struct {
	Name          string `json:"name" binding:"required,min=1,max=100"`
	BankName      string `json:"bank_name" binding:"max=100"`
	AccountNumber string `json:"account_number" binding:"required,min=1,max=50"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
}

// BankAccountResponse represents a bank account in API responses
type BankAccountResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	BankName      string    `json:"bank_name,omitempty"`
	AccountNumber string    `json:"account_number"`
	Currency      string    `json:"currency"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToBankAccountResponse converts a domain BankAccount
func ToBankAccountResponse(acc *finance.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:            acc.ID,
		Name:          acc.Name,
		BankName:      acc.BankName,
		AccountNumber: acc.AccountNumber,
		Currency:      string(acc.Currency),
		IsActive:      acc.IsActive,
		CreatedAt:     acc.CreatedAt,
	}
}

// ImportTransactionRow is one statement row in an import request
type ImportTransactionRow struct {
	TransactionDate time.Time       `json:"transaction_date" binding:"required"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description" binding:"max=500"`
	Reference       string          `json:"reference" binding:"max=100"`
}

// ImportTransactionsRequest imports statement rows into a bank account
type ImportTransactionsRequest struct {
	Rows []ImportTransactionRow `json:"rows" binding:"required,min=1,max=1000,dive"`
}

// ManualReconcileRequest pairs transactions with payments positionally
type ManualReconcileRequest struct {
	TransactionIDs []uuid.UUID `json:"transaction_ids" binding:"required,min=1"`
	PaymentIDs     []uuid.UUID `json:"payment_ids" binding:"required,min=1"`
}

// BankTransactionListFilter represents filter options for the bank transaction list
type BankTransactionListFilter struct {
	ListRequest
	BankAccountID *uuid.UUID `form:"bank_account_id"`
	Reconciled    *bool      `form:"reconciled"`
}

// BankTransactionResponse represents a bank transaction in API responses
type BankTransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	BankAccountID   uuid.UUID       `json:"bank_account_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Reconciled      bool            `json:"reconciled"`
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
	ReconciledAt    *time.Time      `json:"reconciled_at,omitempty"`
	ReconciledBy    *uuid.UUID      `json:"reconciled_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToBankTransactionResponse converts a domain BankTransaction
func ToBankTransactionResponse(tx *finance.BankTransaction) BankTransactionResponse {
	return BankTransactionResponse{
		ID:              tx.ID,
		BankAccountID:   tx.BankAccountID,
		TransactionDate: tx.TransactionDate,
		Amount:          tx.Amount,
		Description:     tx.Description,
		Reference:       tx.Reference,
		Reconciled:      tx.Reconciled,
		PaymentID:       tx.PaymentID,
		ReconciledAt:    tx.ReconciledAt,
		ReconciledBy:    tx.ReconciledBy,
		CreatedAt:       tx.CreatedAt,
	}
}

// ToBankTransactionResponses converts a slice of bank transactions
func ToBankTransactionResponses(txs []finance.BankTransaction) []BankTransactionResponse {
	out := make([]BankTransactionResponse, len(txs))
	for i := range txs {
		out[i] = ToBankTransactionResponse(&txs[i])
	}
	return out
}

// ==================== Audit / Integrity DTOs ====================

// AuditListFilter represents filter options for the audit log
type AuditListFilter struct {
	ListRequest
	EntityType string     `form:"entity_type" binding:"omitempty,oneof=Quote Invoice Payment CreditNote BankAccount BankTransaction"`
	EntityID   *uuid.UUID `form:"entity_id"`
	ActorID    *uuid.UUID `form:"actor_id"`
}

// IntegrityReport is the outcome of an integrity verification run
type IntegrityReport struct {
	TenantID        uuid.UUID                    `json:"tenant_id"`
	CheckedAt       time.Time                    `json:"checked_at"`
	InvoicesChecked int                          `json:"invoices_checked"`
	QuotesChecked   int                          `json:"quotes_checked"`
	LinksChecked    int                          `json:"links_checked"`
	Violations      []finance.IntegrityViolation `json:"violations"`
}

// OK reports whether no violation was found
func (r IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}
