package models

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemColumns holds the priced columns shared by quote and invoice items
type LineItemColumns struct {
	Description  string          `gorm:"type:varchar(500);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	DiscountRate decimal.Decimal `gorm:"type:decimal(5,4);not null;default:0"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VehicleID    *uuid.UUID      `gorm:"type:uuid"`
	SortOrder    int             `gorm:"not null;default:0"`
}

func lineItemColumns(it finance.LineItem) LineItemColumns {
	return LineItemColumns{
		Description:  it.Description,
		Quantity:     it.Quantity,
		UnitPrice:    it.UnitPrice,
		TaxRate:      it.TaxRate,
		DiscountRate: it.DiscountRate,
		LineTotal:    it.LineTotal,
		VehicleID:    it.VehicleID,
		SortOrder:    it.SortOrder,
	}
}

func (c LineItemColumns) toDomain(id uuid.UUID) finance.LineItem {
	return finance.LineItem{
		ID:           id,
		Description:  c.Description,
		Quantity:     c.Quantity,
		UnitPrice:    c.UnitPrice,
		TaxRate:      c.TaxRate,
		DiscountRate: c.DiscountRate,
		LineTotal:    c.LineTotal,
		VehicleID:    c.VehicleID,
		SortOrder:    c.SortOrder,
	}
}

// DocumentTotals holds the computed amount columns of quotes and invoices
type DocumentTotals struct {
	Currency       string          `gorm:"type:varchar(3);not null;default:'CLP'"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// QuoteModel is the persistence model for the Quote aggregate root
type QuoteModel struct {
	TenantAggregateModel
	QuoteNumber string     `gorm:"type:varchar(30);not null"`
	CustomerID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	TeamID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	VehicleID   *uuid.UUID `gorm:"type:uuid"`
	DocumentTotals
	Status               string    `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	ValidUntil           time.Time `gorm:"not null"`
	Notes                string    `gorm:"type:text"`
	RejectionReason      string    `gorm:"type:varchar(500)"`
	SentAt               *time.Time
	ViewedAt             *time.Time
	AcceptedAt           *time.Time
	RejectedAt           *time.Time
	ExpiredAt            *time.Time
	ConvertedToInvoiceID *uuid.UUID `gorm:"type:uuid"`
	ConvertedAt          *time.Time
	Items                []QuoteItemModel `gorm:"foreignKey:QuoteID;references:ID"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// QuoteItemModel is the persistence model for a quote line
type QuoteItemModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	QuoteID uuid.UUID `gorm:"type:uuid;not null;index"`
	LineItemColumns
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// QuoteModelFromDomain creates a persistence model from a domain Quote
func QuoteModelFromDomain(q *finance.Quote) *QuoteModel {
	m := &QuoteModel{
		QuoteNumber: q.QuoteNumber,
		CustomerID:  q.CustomerID,
		TeamID:      q.TeamID,
		VehicleID:   q.VehicleID,
		DocumentTotals: DocumentTotals{
			Currency:       string(q.Currency),
			Subtotal:       q.Subtotal,
			TaxAmount:      q.TaxAmount,
			DiscountAmount: q.DiscountAmount,
			Total:          q.Total,
		},
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
		Items:                make([]QuoteItemModel, len(q.Items)),
	}
	m.FromDomainTenantAggregateRoot(q.TenantAggregateRoot)
	for i, it := range q.Items {
		m.Items[i] = QuoteItemModel{ID: it.ID, QuoteID: q.ID, LineItemColumns: lineItemColumns(it)}
	}
	return m
}

// ToDomain converts the persistence model to a domain Quote
func (m *QuoteModel) ToDomain() *finance.Quote {
	q := &finance.Quote{
		TenantAggregateRoot:  m.ToDomainTenantAggregateRoot(),
		QuoteNumber:          m.QuoteNumber,
		CustomerID:           m.CustomerID,
		TeamID:               m.TeamID,
		VehicleID:            m.VehicleID,
		Currency:             valueobject.Currency(m.Currency),
		Subtotal:             m.Subtotal,
		TaxAmount:            m.TaxAmount,
		DiscountAmount:       m.DiscountAmount,
		Total:                m.Total,
		Status:               finance.QuoteStatus(m.Status),
		ValidUntil:           m.ValidUntil,
		Notes:                m.Notes,
		RejectionReason:      m.RejectionReason,
		SentAt:               m.SentAt,
		ViewedAt:             m.ViewedAt,
		AcceptedAt:           m.AcceptedAt,
		RejectedAt:           m.RejectedAt,
		ExpiredAt:            m.ExpiredAt,
		ConvertedToInvoiceID: m.ConvertedToInvoiceID,
		ConvertedAt:          m.ConvertedAt,
		Items:                make([]finance.LineItem, len(m.Items)),
	}
	for i, it := range m.Items {
		q.Items[i] = it.toDomain(it.ID)
	}
	return q
}

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber string     `gorm:"type:varchar(30);not null"`
	CustomerID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	TeamID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	VehicleID     *uuid.UUID `gorm:"type:uuid"`
	SourceQuoteID *uuid.UUID `gorm:"type:uuid;index"`
	DocumentTotals
	AmountPaid   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountDue    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status       string          `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	IssueDate    time.Time       `gorm:"not null"`
	DueDate      time.Time       `gorm:"not null;index"`
	Notes        string          `gorm:"type:text"`
	Terms        string          `gorm:"type:text"`
	SentAt       *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string             `gorm:"type:varchar(500)"`
	Items        []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is the persistence model for an invoice line
type InvoiceItemModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
	LineItemColumns
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		TeamID:        inv.TeamID,
		VehicleID:     inv.VehicleID,
		SourceQuoteID: inv.SourceQuoteID,
		DocumentTotals: DocumentTotals{
			Currency:       string(inv.Currency),
			Subtotal:       inv.Subtotal,
			TaxAmount:      inv.TaxAmount,
			DiscountAmount: inv.DiscountAmount,
			Total:          inv.Total,
		},
		AmountPaid:   inv.AmountPaid,
		AmountDue:    inv.AmountDue,
		Status:       string(inv.Status),
		IssueDate:    inv.IssueDate,
		DueDate:      inv.DueDate,
		Notes:        inv.Notes,
		Terms:        inv.Terms,
		SentAt:       inv.SentAt,
		PaidAt:       inv.PaidAt,
		CancelledAt:  inv.CancelledAt,
		CancelReason: inv.CancelReason,
		Items:        make([]InvoiceItemModel, len(inv.Items)),
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	for i, it := range inv.Items {
		m.Items[i] = InvoiceItemModel{ID: it.ID, InvoiceID: inv.ID, LineItemColumns: lineItemColumns(it)}
	}
	return m
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	inv := &finance.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		CustomerID:          m.CustomerID,
		TeamID:              m.TeamID,
		VehicleID:           m.VehicleID,
		SourceQuoteID:       m.SourceQuoteID,
		Currency:            valueobject.Currency(m.Currency),
		Subtotal:            m.Subtotal,
		TaxAmount:           m.TaxAmount,
		DiscountAmount:      m.DiscountAmount,
		Total:               m.Total,
		AmountPaid:          m.AmountPaid,
		AmountDue:           m.AmountDue,
		Status:              finance.InvoiceStatus(m.Status),
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		Notes:               m.Notes,
		Terms:               m.Terms,
		SentAt:              m.SentAt,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
		Items:               make([]finance.LineItem, len(m.Items)),
	}
	for i, it := range m.Items {
		inv.Items[i] = it.toDomain(it.ID)
	}
	return inv
}
