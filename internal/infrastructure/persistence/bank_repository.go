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

// GormBankAccountRepository implements BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByIDForTenant finds a bank account by ID for a tenant
func (r *GormBankAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("bank account").WithDetail("bankAccountId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists the tenant's bank accounts by name
func (r *GormBankAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]finance.BankAccount, error) {
	var accountModels []models.BankAccountModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("name ASC").
		Find(&accountModels).Error; err != nil {
		return nil, err
	}
	accounts := make([]finance.BankAccount, len(accountModels))
	for i := range accountModels {
		accounts[i] = *accountModels[i].ToDomain()
	}
	return accounts, nil
}

// Save creates or updates a bank account
func (r *GormBankAccountRepository) Save(ctx context.Context, account *finance.BankAccount) error {
	return r.db.WithContext(ctx).Save(models.BankAccountModelFromDomain(account)).Error
}

// GormBankTransactionRepository implements BankTransactionRepository using GORM
type GormBankTransactionRepository struct {
	db *gorm.DB
}

// NewGormBankTransactionRepository creates a new GormBankTransactionRepository
func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

// FindByIDForTenant finds a bank transaction by ID for a tenant
func (r *GormBankTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	return r.findOne(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a bank transaction and locks its row
func (r *GormBankTransactionRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	return r.findOne(forUpdate(r.db.WithContext(ctx)), tenantID, id)
}

func (r *GormBankTransactionRepository) findOne(db *gorm.DB, tenantID, id uuid.UUID) (*finance.BankTransaction, error) {
	var model models.BankTransactionModel
	if err := db.
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("bank transaction").WithDetail("transactionId", id.String())
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnreconciled returns up to limit open rows of the account after the cursor, oldest first
func (r *GormBankTransactionRepository) FindUnreconciled(ctx context.Context, tenantID, accountID uuid.UUID, after *finance.StatementCursor, limit int) ([]finance.BankTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND bank_account_id = ? AND reconciled = ?", tenantID, accountID, false)
	if after != nil {
		query = query.Where(
			"transaction_date > ? OR (transaction_date = ? AND (created_at > ? OR (created_at = ? AND id > ?)))",
			after.TransactionDate, after.TransactionDate, after.CreatedAt, after.CreatedAt, after.ID,
		)
	}
	var txModels []models.BankTransactionModel
	if err := query.
		Order("transaction_date ASC, created_at ASC, id ASC").
		Limit(limit).
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// FindReconciled returns every reconciled row of the tenant
func (r *GormBankTransactionRepository) FindReconciled(ctx context.Context, tenantID uuid.UUID) ([]finance.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reconciled = ?", tenantID, true).
		Order("reconciled_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// IsPaymentLinked reports whether a reconciled row already references the payment
func (r *GormBankTransactionRepository) IsPaymentLinked(ctx context.Context, tenantID, paymentID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BankTransactionModel{}).
		Where("tenant_id = ? AND reconciled = ? AND payment_id = ?", tenantID, true, paymentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAllForTenant lists bank transactions
func (r *GormBankTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) ([]finance.BankTransaction, error) {
	var txModels []models.BankTransactionModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).Where("tenant_id = ?", tenantID), filter)
	query = applyPaging(query, filter.Filter, BankTransactionSortFields, "transaction_date")
	if err := query.Find(&txModels).Error; err != nil {
		return nil, err
	}
	return bankTransactionsToDomain(txModels), nil
}

// CountForTenant counts bank transactions matching the filter
func (r *GormBankTransactionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BankTransactionFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.BankTransactionModel{}).Where("tenant_id = ?", tenantID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a bank transaction
func (r *GormBankTransactionRepository) Save(ctx context.Context, tx *finance.BankTransaction) error {
	return r.db.WithContext(ctx).Save(models.BankTransactionModelFromDomain(tx)).Error
}

func (r *GormBankTransactionRepository) applyFilter(query *gorm.DB, filter finance.BankTransactionFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("description LIKE ? OR reference LIKE ?", likePattern(filter.Search), likePattern(filter.Search))
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Reconciled != nil {
		query = query.Where("reconciled = ?", *filter.Reconciled)
	}
	return query
}

func bankTransactionsToDomain(txModels []models.BankTransactionModel) []finance.BankTransaction {
	txs := make([]finance.BankTransaction, len(txModels))
	for i := range txModels {
		txs[i] = *txModels[i].ToDomain()
	}
	return txs
}

var (
	_ finance.BankAccountRepository     = (*GormBankAccountRepository)(nil)
	_ finance.BankTransactionRepository = (*GormBankTransactionRepository)(nil)
)
