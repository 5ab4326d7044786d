package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID for a tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a payment and locks its row for the rest of the transaction
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormPaymentRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var model models.PaymentModel
	if err := db.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment").WithDetail("paymentId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoice returns every payment of an invoice, oldest first
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(paymentModels), nil
}

// FindAllForTenant lists payments
func (r *GormPaymentRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentFilter) ([]finance.Payment, error) {
	var paymentModels []models.PaymentModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, PaymentSortFields, "payment_date")
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(paymentModels), nil
}

// CountForTenant counts payments matching the filter
func (r *GormPaymentRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.PaymentFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindMatchCandidates returns completed, not yet reconciled payments of exactly amount
// dated in [from, to), oldest first
func (r *GormPaymentRepository) FindMatchCandidates(ctx context.Context, tenantID uuid.UUID, amount decimal.Decimal, from, to time.Time) ([]finance.Payment, error) {
	linked := r.db.Model(&models.BankTransactionModel{}).
		Select("payment_id").
		Where("tenant_id = ? AND reconciled = ? AND payment_id IS NOT NULL", tenantID, true)

	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND amount = ?", tenantID, string(finance.PaymentStatusCompleted), amount).
		Where("payment_date >= ? AND payment_date < ?", from, to).
		Where("id NOT IN (?)", linked).
		Order("payment_date ASC, created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(paymentModels), nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock updates a payment guarded by its version
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *finance.Payment) error {
	return saveWithLock(r.db.WithContext(ctx), models.PaymentModelFromDomain(payment), payment.ID, payment.Version)
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter finance.PaymentFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("payment_number LIKE ? OR reference LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
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
	if filter.Method != nil {
		query = query.Where("method = ?", string(*filter.Method))
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date < ?", *filter.ToDate)
	}
	return query
}

func paymentsToDomain(paymentModels []models.PaymentModel) []finance.Payment {
	payments := make([]finance.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
