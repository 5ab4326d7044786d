package persistence

import (
	"context"
	"slices"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantDirectory lists the tenants that have finance work pending
type GormTenantDirectory struct {
	db *gorm.DB
}

// NewGormTenantDirectory creates a new GormTenantDirectory
func NewGormTenantDirectory(db *gorm.DB) *GormTenantDirectory {
	return &GormTenantDirectory{db: db}
}

// ActiveTenantIDs returns tenants holding open invoices or an active bank account, sorted
func (d *GormTenantDirectory) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var fromInvoices []uuid.UUID
	if err := d.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status IN ?", []string{
			string(finance.InvoiceStatusUnpaid),
			string(finance.InvoiceStatusSent),
			string(finance.InvoiceStatusPartiallyPaid),
		}).
		Distinct().
		Pluck("tenant_id", &fromInvoices).Error; err != nil {
		return nil, err
	}

	var fromAccounts []uuid.UUID
	if err := d.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Where("is_active = ?", true).
		Distinct().
		Pluck("tenant_id", &fromAccounts).Error; err != nil {
		return nil, err
	}

	ids := append(fromInvoices, fromAccounts...)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	return slices.Compact(ids), nil
}
