package persistence

import (
	"context"
	"slices"
	"testing"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTenantDirectory_ActiveTenantIDs(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	invoices := NewGormInvoiceRepository(db)
	accounts := NewGormBankAccountRepository(db)

	withOpenInvoice, withDraftOnly, withAccount := uuid.New(), uuid.New(), uuid.New()

	open := newTestInvoice(t, withOpenInvoice, "FAC-2026-000001", repoNow.AddDate(0, 0, 30), "1000000")
	require.NoError(t, open.TransitionTo(finance.InvoiceStatusUnpaid, repoNow))
	second := newTestInvoice(t, withOpenInvoice, "FAC-2026-000002", repoNow.AddDate(0, 0, 30), "500000")
	require.NoError(t, second.TransitionTo(finance.InvoiceStatusSent, repoNow))
	draft := newTestInvoice(t, withDraftOnly, "FAC-2026-000001", repoNow.AddDate(0, 0, 30), "1000000")
	for _, inv := range []*finance.Invoice{open, second, draft} {
		require.NoError(t, invoices.Save(ctx, inv))
	}

	acc, err := finance.NewBankAccount(withAccount, uuid.New(), "Cuenta corriente", "Banco de Chile", "00-123", valueobject.DefaultCurrency, repoNow)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, acc))

	ids, err := NewGormTenantDirectory(db).ActiveTenantIDs(ctx)
	require.NoError(t, err)

	want := []uuid.UUID{withOpenInvoice, withAccount}
	slices.SortFunc(want, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	assert.Equal(t, want, ids)
}
