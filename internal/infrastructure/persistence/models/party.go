package models

import (
	"github.com/google/uuid"
)

// CustomerModel is the dealership customer a document is addressed to.
// Finance only needs to know it exists; the CRM owns the rest of the record.
type CustomerModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(200);not null"`
	TaxID    string    `gorm:"type:varchar(20);index"`
	Email    string    `gorm:"type:varchar(200)"`
	Phone    string    `gorm:"type:varchar(50)"`
	IsActive bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// TeamModel is the sales team that owns a quote or invoice
type TeamModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(100);not null"`
	IsActive bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TeamModel) TableName() string {
	return "teams"
}
