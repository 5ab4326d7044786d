package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice with its items
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds an invoice and holds its row lock so balance updates serialize
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormInvoiceRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice").WithDetail("invoiceId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists invoices without their items
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) ([]finance.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, InvoiceSortFields, "created_at")
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(invoiceModels), nil
}

// CountForTenant counts invoices matching the filter
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOverdueCandidates returns open invoices due before asOf, oldest due date first
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, tenantID uuid.UUID, asOf time.Time, limit int) ([]finance.Invoice, error) {
	statuses := []string{
		string(finance.InvoiceStatusUnpaid),
		string(finance.InvoiceStatusSent),
		string(finance.InvoiceStatusPartiallyPaid),
	}
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ? AND due_date < ?", tenantID, statuses, asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(invoiceModels), nil
}

// FindIDsForTenant returns all invoice ids of the tenant in creation order
func (r *GormInvoiceRepository) FindIDsForTenant(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates an invoice and replaces its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}

	itemIDs := make([]uuid.UUID, len(model.Items))
	for i := range model.Items {
		itemIDs[i] = model.Items[i].ID
	}
	stale := db.Where("invoice_id = ?", model.ID)
	if len(itemIDs) > 0 {
		stale = stale.Where("id NOT IN ?", itemIDs)
	}
	if err := stale.Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return err
	}
	for i := range model.Items {
		if err := db.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter finance.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("invoice_number LIKE ? OR notes LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.SourceQuoteID != nil {
		query = query.Where("source_quote_id = ?", *filter.SourceQuoteID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date < ?", *filter.DueTo)
	}
	return query
}

func invoicesToDomain(invoiceModels []models.InvoiceModel) []finance.Invoice {
	invoices := make([]finance.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)
