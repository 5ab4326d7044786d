package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// nextSequenceSQL bumps (or creates) the counter row and returns the new value in a single
// statement. The row lock it takes is held until the caller's transaction ends, so two
// concurrent allocations for the same key always see different values.
const nextSequenceSQL = `INSERT INTO document_sequences (tenant_id, document_type, year, last_value, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (tenant_id, document_type, year)
DO UPDATE SET last_value = document_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// GormSequenceAllocator implements SequenceAllocator on the document_sequences table.
// A value consumed by a committed transaction is never reused, even when the
// document carrying it is cancelled later.
type GormSequenceAllocator struct {
	db *gorm.DB
}

// NewGormSequenceAllocator creates a new GormSequenceAllocator
func NewGormSequenceAllocator(db *gorm.DB) *GormSequenceAllocator {
	return &GormSequenceAllocator{db: db}
}

// Next returns the next value of the (tenant, type, year) counter, starting at 1
func (a *GormSequenceAllocator) Next(ctx context.Context, tenantID uuid.UUID, docType finance.DocumentType, year int) (int64, error) {
	if !docType.IsValid() {
		return 0, fmt.Errorf("unknown document type %q", docType)
	}
	var next int64
	result := a.db.WithContext(ctx).
		Raw(nextSequenceSQL, tenantID, string(docType), year, time.Now().UTC()).
		Scan(&next)
	if result.Error != nil {
		return 0, fmt.Errorf("bump %s sequence: %w", docType, result.Error)
	}
	if next < 1 {
		return 0, fmt.Errorf("bump %s sequence: no value returned", docType)
	}
	return next, nil
}

var _ finance.SequenceAllocator = (*GormSequenceAllocator)(nil)
