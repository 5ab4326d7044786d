package persistence

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository is the append-only audit store.
// It exposes no update or delete.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts the entries
func (r *GormAuditRepository) Append(ctx context.Context, entries ...finance.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.AuditEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.AuditEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindAllForTenant lists audit entries, newest first by default
func (r *GormAuditRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AuditFilter) ([]finance.AuditEntry, error) {
	var rows []models.AuditEntryModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditEntryModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, AuditSortFields, "occurred_at")
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]finance.AuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, nil
}

// CountForTenant counts audit entries matching the filter
func (r *GormAuditRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.AuditFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditEntryModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAuditRepository) applyFilter(query *gorm.DB, filter finance.AuditFilter) *gorm.DB {
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Search != "" {
		query = query.Where("entity_number LIKE ? OR action LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	return query
}

var _ finance.AuditRepository = (*GormAuditRepository)(nil)
