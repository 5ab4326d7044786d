package persistence

import (
	"context"
	"errors"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditNoteRepository implements CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByIDForTenant finds a credit note by ID for a tenant
func (r *GormCreditNoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.CreditNote, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a credit note and locks its row for the rest of the transaction
func (r *GormCreditNoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.CreditNote, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormCreditNoteRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*finance.CreditNote, error) {
	var model models.CreditNoteModel
	if err := db.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("credit note").WithDetail("creditNoteId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns every credit note of an invoice, oldest first
func (r *GormCreditNoteRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]finance.CreditNote, error) {
	var noteModels []models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC").
		Find(&noteModels).Error; err != nil {
		return nil, err
	}
	return creditNotesToDomain(noteModels), nil
}

// FindAllForTenant lists credit notes
func (r *GormCreditNoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.CreditNoteFilter) ([]finance.CreditNote, error) {
	var noteModels []models.CreditNoteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, CreditNoteSortFields, "created_at")
	if err := query.Find(&noteModels).Error; err != nil {
		return nil, err
	}
	return creditNotesToDomain(noteModels), nil
}

// CountForTenant counts credit notes matching the filter
func (r *GormCreditNoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.CreditNoteFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.CreditNoteModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a credit note
func (r *GormCreditNoteRepository) Save(ctx context.Context, note *finance.CreditNote) error {
	return r.db.WithContext(ctx).Save(models.CreditNoteModelFromDomain(note)).Error
}

// SaveWithLock updates a credit note guarded by its version
func (r *GormCreditNoteRepository) SaveWithLock(ctx context.Context, note *finance.CreditNote) error {
	return saveWithLock(r.db.WithContext(ctx), models.CreditNoteModelFromDomain(note), note.ID, note.Version)
}

func (r *GormCreditNoteRepository) applyFilter(query *gorm.DB, filter finance.CreditNoteFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("credit_note_number LIKE ? OR reason LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	return query
}

func creditNotesToDomain(noteModels []models.CreditNoteModel) []finance.CreditNote {
	notes := make([]finance.CreditNote, len(noteModels))
	for i := range noteModels {
		notes[i] = *noteModels[i].ToDomain()
	}
	return notes
}

var _ finance.CreditNoteRepository = (*GormCreditNoteRepository)(nil)
