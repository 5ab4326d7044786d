package models

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	TenantAggregateModel
	PaymentNumber string          `gorm:"type:varchar(30);not null"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'CLP'"`
	Method        string          `gorm:"type:varchar(20);not null"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	Reference     string          `gorm:"type:varchar(100)"`
	PaymentDate   time.Time       `gorm:"not null;index"`
	Notes         string          `gorm:"type:text"`
	RefundedAt    *time.Time
	RefundReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{
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
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	return &finance.Payment{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		PaymentNumber:       m.PaymentNumber,
		InvoiceID:           m.InvoiceID,
		CustomerID:          m.CustomerID,
		Amount:              m.Amount,
		Currency:            valueobject.Currency(m.Currency),
		Method:              finance.PaymentMethod(m.Method),
		Status:              finance.PaymentStatus(m.Status),
		Reference:           m.Reference,
		PaymentDate:         m.PaymentDate,
		Notes:               m.Notes,
		RefundedAt:          m.RefundedAt,
		RefundReason:        m.RefundReason,
	}
}

// CreditNoteModel is the persistence model for the CreditNote aggregate root
type CreditNoteModel struct {
	TenantAggregateModel
	CreditNoteNumber string          `gorm:"type:varchar(30);not null"`
	InvoiceID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'CLP'"`
	Reason           string          `gorm:"type:varchar(500);not null"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	IssuedAt         *time.Time
	AppliedAt        *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// CreditNoteModelFromDomain creates a persistence model from a domain CreditNote
func CreditNoteModelFromDomain(cn *finance.CreditNote) *CreditNoteModel {
	m := &CreditNoteModel{
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
	}
	m.FromDomainTenantAggregateRoot(cn.TenantAggregateRoot)
	return m
}

// ToDomain converts the persistence model to a domain CreditNote
func (m *CreditNoteModel) ToDomain() *finance.CreditNote {
	return &finance.CreditNote{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		CreditNoteNumber:    m.CreditNoteNumber,
		InvoiceID:           m.InvoiceID,
		CustomerID:          m.CustomerID,
		Amount:              m.Amount,
		Currency:            valueobject.Currency(m.Currency),
		Reason:              m.Reason,
		Status:              finance.CreditNoteStatus(m.Status),
		IssuedAt:            m.IssuedAt,
		AppliedAt:           m.AppliedAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}
