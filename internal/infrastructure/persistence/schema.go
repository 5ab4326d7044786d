package persistence

import (
	"fmt"

	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// financeModels lists every table of the finance schema in dependency order
func financeModels() []any {
	return []any{
		&models.CustomerModel{},
		&models.TeamModel{},
		&models.DocumentSequenceModel{},
		&models.QuoteModel{},
		&models.QuoteItemModel{},
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
		&models.PaymentModel{},
		&models.CreditNoteModel{},
		&models.BankAccountModel{},
		&models.BankTransactionModel{},
		&models.AuditEntryModel{},
	}
}

// schemaIndexes mirrors the unique indexes of the SQL migrations
var schemaIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_quotes_tenant_number ON quotes (tenant_id, quote_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_tenant_number ON invoices (tenant_id, invoice_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_tenant_number ON payments (tenant_id, payment_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_notes_tenant_number ON credit_notes (tenant_id, credit_note_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bank_transactions_payment ON bank_transactions (payment_id) WHERE reconciled`,
}

// AutoMigrate creates the finance schema from the models. It backs the sqlite
// driver used for local runs and tests; postgres goes through the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(financeModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range schemaIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
