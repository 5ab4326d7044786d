package persistence

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPartyDirectory resolves customers and sales teams from their tables
type GormPartyDirectory struct {
	db *gorm.DB
}

// NewGormPartyDirectory creates a new GormPartyDirectory
func NewGormPartyDirectory(db *gorm.DB) *GormPartyDirectory {
	return &GormPartyDirectory{db: db}
}

// CustomerExists reports whether an active customer with the id belongs to the tenant
func (d *GormPartyDirectory) CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error) {
	return d.exists(ctx, &models.CustomerModel{}, tenantID, customerID)
}

// TeamExists reports whether an active team with the id belongs to the tenant
func (d *GormPartyDirectory) TeamExists(ctx context.Context, tenantID, teamID uuid.UUID) (bool, error) {
	return d.exists(ctx, &models.TeamModel{}, tenantID, teamID)
}

func (d *GormPartyDirectory) exists(ctx context.Context, model any, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := d.db.WithContext(ctx).
		Model(model).
		Where("tenant_id = ? AND id = ? AND is_active = ?", tenantID, id, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveCustomer creates or updates a customer row
func (d *GormPartyDirectory) SaveCustomer(ctx context.Context, customer *models.CustomerModel) error {
	return d.db.WithContext(ctx).Save(customer).Error
}

// SaveTeam creates or updates a team row
func (d *GormPartyDirectory) SaveTeam(ctx context.Context, team *models.TeamModel) error {
	return d.db.WithContext(ctx).Save(team).Error
}

var _ finance.PartyDirectory = (*GormPartyDirectory)(nil)
