package persistence

import (
	"context"
	"errors"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQuoteRepository implements QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// FindByIDForTenant finds a quote with its items
func (r *GormQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Quote, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a quote and locks its row for the rest of the transaction
func (r *GormQuoteRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Quote, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormQuoteRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Quote, error) {
	var model models.QuoteModel
	if err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("quote").WithDetail("quoteId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists quotes without their items
func (r *GormQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.QuoteFilter) ([]finance.Quote, error) {
	var quoteModels []models.QuoteModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, QuoteSortFields, "created_at")
	if err := query.Find(&quoteModels).Error; err != nil {
		return nil, err
	}
	quotes := make([]finance.Quote, len(quoteModels))
	for i := range quoteModels {
		quotes[i] = *quoteModels[i].ToDomain()
	}
	return quotes, nil
}

// CountForTenant counts quotes matching the filter
func (r *GormQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.QuoteFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.QuoteModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a quote and replaces its items
func (r *GormQuoteRepository) Save(ctx context.Context, quote *finance.Quote) error {
	model := models.QuoteModelFromDomain(quote)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(model).Error; err != nil {
		return err
	}

	itemIDs := make([]uuid.UUID, len(model.Items))
	for i := range model.Items {
		itemIDs[i] = model.Items[i].ID
	}
	stale := db.Where("quote_id = ?", model.ID)
	if len(itemIDs) > 0 {
		stale = stale.Where("id NOT IN ?", itemIDs)
	}
	if err := stale.Delete(&models.QuoteItemModel{}).Error; err != nil {
		return err
	}
	for i := range model.Items {
		if err := db.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormQuoteRepository) applyFilter(query *gorm.DB, filter finance.QuoteFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("quote_number LIKE ? OR notes LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at < ?", *filter.ToDate)
	}
	return query
}

// Ensure GormQuoteRepository implements QuoteRepository
var _ finance.QuoteRepository = (*GormQuoteRepository)(nil)
