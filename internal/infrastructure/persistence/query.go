package persistence

import (
	"strings"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// applyPaging adds whitelisted ordering and pagination to a list query
func applyPaging(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	filter = filter.Normalize()
	sortField := ValidateSortField(filter.OrderBy, allowed, defaultField)
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}

// likePattern escapes a free-text search term for a LIKE clause
func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(search)) + "%"
}

// forUpdate takes a row lock on dialects that support SELECT ... FOR UPDATE.
// SQLite serializes writers on its own, so the clause is skipped there.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// saveWithLock writes every column of model over the row still stored at
// version-1. A row moved on by another transaction yields ErrConcurrencyConflict.
func saveWithLock(db *gorm.DB, model any, id uuid.UUID, version int) error {
	result := db.Model(model).
		Where("id = ? AND version = ?", id, version-1).
		Select("*").
		Omit("created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
