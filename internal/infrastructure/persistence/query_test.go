package persistence

import (
	"testing"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "DESC"},
		{"asc", "ASC"},
		{"  ASC ", "ASC"},
		{"desc", "DESC"},
		{"ASC; DROP TABLE invoices;--", "DESC"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateSortOrder(tt.input), "input %q", tt.input)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty falls back", "", "created_at"},
		{"whitelisted", "due_date", "due_date"},
		{"trimmed", "  amount_due ", "amount_due"},
		{"case sensitive", "DUE_DATE", "created_at"},
		{"payment column on invoices", "payment_date", "created_at"},
		{"injection", "total; DROP TABLE invoices;--", "created_at"},
		{"subquery", "total, (SELECT tax_id FROM customers)", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, InvoiceSortFields, "created_at"))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	for name, fields := range map[string]map[string]bool{
		"quotes":            QuoteSortFields,
		"invoices":          InvoiceSortFields,
		"payments":          PaymentSortFields,
		"credit notes":      CreditNoteSortFields,
		"bank transactions": BankTransactionSortFields,
	} {
		assert.True(t, fields["created_at"], "%s should sort by creation", name)
	}
	assert.True(t, AuditSortFields["occurred_at"])
	assert.False(t, AuditSortFields["updated_at"], "audit rows are never updated")
}

func TestApplyPaging(t *testing.T) {
	db := newSQLiteDB(t)

	render := func(f shared.Filter) string {
		return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
			return applyPaging(tx.Model(&models.InvoiceModel{}), f, InvoiceSortFields, "created_at").
				Find(&[]models.InvoiceModel{})
		})
	}

	sql := render(shared.Filter{Page: 3, PageSize: 10, OrderBy: "due_date", OrderDir: "asc"})
	assert.Contains(t, sql, "ORDER BY due_date ASC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")

	sql = render(shared.Filter{OrderBy: "customer_id; --", PageSize: 500})
	assert.Contains(t, sql, "ORDER BY created_at DESC")
	assert.Contains(t, sql, "LIMIT 100")
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%FAC-2026%", likePattern("  FAC-2026 "))
	assert.Equal(t, `%50\% off\_promo%`, likePattern("50% off_promo"))
	assert.Equal(t, `%C:\\docs%`, likePattern(`C:\docs`))
}
