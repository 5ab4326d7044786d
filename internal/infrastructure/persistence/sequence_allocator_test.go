package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormSequenceAllocator_SQLite(t *testing.T) {
	db := newSQLiteDB(t)
	alloc := NewGormSequenceAllocator(db)
	ctx := context.Background()
	tenantID := uuid.New()

	for want := int64(1); want <= 3; want++ {
		got, err := alloc.Next(ctx, tenantID, finance.DocumentTypeInvoice, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	t.Run("counters are independent per type, year and tenant", func(t *testing.T) {
		got, err := alloc.Next(ctx, tenantID, finance.DocumentTypePayment, 2026)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got)

		got, err = alloc.Next(ctx, tenantID, finance.DocumentTypeInvoice, 2027)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got)

		got, err = alloc.Next(ctx, uuid.New(), finance.DocumentTypeInvoice, 2026)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got)
	})

	t.Run("a rolled back allocation is released with its transaction", func(t *testing.T) {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := NewGormSequenceAllocator(tx).Next(ctx, tenantID, finance.DocumentTypeQuote, 2026)
			require.NoError(t, err)
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := alloc.Next(ctx, tenantID, finance.DocumentTypeQuote, 2026)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got)
	})

	t.Run("numbers format with the document prefix", func(t *testing.T) {
		number, err := finance.NewDocumentNumberer(alloc).NextNumber(ctx, tenantID, finance.DocumentTypeCreditNote, 2026)
		require.NoError(t, err)
		assert.Equal(t, "NC-2026-000001", number)
	})
}

func TestGormSequenceAllocator_PostgresStatement(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	tenantID := uuid.New()
	mock.ExpectQuery(`INSERT INTO document_sequences .* ON CONFLICT \(tenant_id, document_type, year\) DO UPDATE SET last_value = document_sequences.last_value \+ 1.* RETURNING last_value`).
		WithArgs(tenantID, "QUOTE", 2026, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"last_value"}).AddRow(42))

	got, err := NewGormSequenceAllocator(db).Next(context.Background(), tenantID, finance.DocumentTypeQuote, 2026)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSequenceAllocator_RejectsUnknownType(t *testing.T) {
	db := newSQLiteDB(t)
	_, err := NewGormSequenceAllocator(db).Next(context.Background(), uuid.New(), finance.DocumentType("RECEIPT"), 2026)
	require.Error(t, err)
}
