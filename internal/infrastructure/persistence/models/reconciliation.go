package models

import (
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccountModel is the persistence model for a dealership bank account
type BankAccountModel struct {
	TenantAggregateModel
	Name          string `gorm:"type:varchar(100);not null"`
	BankName      string `gorm:"type:varchar(100)"`
	AccountNumber string `gorm:"type:varchar(50);not null"`
	Currency      string `gorm:"type:varchar(3);not null;default:'CLP'"`
	IsActive      bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "bank_accounts"
}

// BankAccountModelFromDomain creates a persistence model from a domain BankAccount
func BankAccountModelFromDomain(acc *finance.BankAccount) *BankAccountModel {
	m := &BankAccountModel{
		Name:          acc.Name,
		BankName:      acc.BankName,
		AccountNumber: acc.AccountNumber,
		Currency:      string(acc.Currency),
		IsActive:      acc.IsActive,
	}
	m.FromDomainTenantAggregateRoot(acc.TenantAggregateRoot)
	return m
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *finance.BankAccount {
	return &finance.BankAccount{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		Name:                m.Name,
		BankName:            m.BankName,
		AccountNumber:       m.AccountNumber,
		Currency:            valueobject.Currency(m.Currency),
		IsActive:            m.IsActive,
	}
}

// BankTransactionModel is the persistence model for one bank statement row
type BankTransactionModel struct {
	TenantAggregateModel
	BankAccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionDate time.Time       `gorm:"not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Description     string          `gorm:"type:varchar(500)"`
	Reference       string          `gorm:"type:varchar(100)"`
	Reconciled      bool            `gorm:"not null;default:false;index"`
	PaymentID       *uuid.UUID      `gorm:"type:uuid"`
	ReconciledAt    *time.Time
	ReconciledBy    *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (BankTransactionModel) TableName() string {
	return "bank_transactions"
}

// BankTransactionModelFromDomain creates a persistence model from a domain BankTransaction
func BankTransactionModelFromDomain(tx *finance.BankTransaction) *BankTransactionModel {
	m := &BankTransactionModel{
		BankAccountID:   tx.BankAccountID,
		TransactionDate: tx.TransactionDate,
		Amount:          tx.Amount,
		Description:     tx.Description,
		Reference:       tx.Reference,
		Reconciled:      tx.Reconciled,
		PaymentID:       tx.PaymentID,
		ReconciledAt:    tx.ReconciledAt,
		ReconciledBy:    tx.ReconciledBy,
	}
	m.FromDomainTenantAggregateRoot(tx.TenantAggregateRoot)
	return m
}

// ToDomain converts the persistence model to a domain BankTransaction
func (m *BankTransactionModel) ToDomain() *finance.BankTransaction {
	return &finance.BankTransaction{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		BankAccountID:       m.BankAccountID,
		TransactionDate:     m.TransactionDate,
		Amount:              m.Amount,
		Description:         m.Description,
		Reference:           m.Reference,
		Reconciled:          m.Reconciled,
		PaymentID:           m.PaymentID,
		ReconciledAt:        m.ReconciledAt,
		ReconciledBy:        m.ReconciledBy,
	}
}
