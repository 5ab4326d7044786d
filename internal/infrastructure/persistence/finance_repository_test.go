package persistence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormQuoteRepository_SaveAndFind(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	q := newTestQuote(t, tenantID, "COT-2026-000001", "12000000", "350000")
	require.NoError(t, repo.Save(ctx, q))

	loaded, err := repo.FindByIDForTenant(ctx, tenantID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "COT-2026-000001", loaded.QuoteNumber)
	assert.Equal(t, finance.QuoteStatusDraft, loaded.Status)
	assert.True(t, q.Total.Equal(loaded.Total), "total %s vs %s", q.Total, loaded.Total)
	require.Len(t, loaded.Items, 2)
	assert.True(t, loaded.Items[0].UnitPrice.Equal(dec("12000000")))
	assert.True(t, loaded.Items[1].UnitPrice.Equal(dec("350000")))

	t.Run("replacing items removes the stale rows", func(t *testing.T) {
		calc := finance.NewCalculator(finance.DefaultVATRate)
		require.NoError(t, loaded.ReplaceItems(calc, carItems("9000000"), dec("0"), repoNow.Add(time.Hour)))
		require.NoError(t, repo.Save(ctx, loaded))

		again, err := repo.FindByIDForUpdate(ctx, tenantID, q.ID)
		require.NoError(t, err)
		require.Len(t, again.Items, 1)
		assert.True(t, again.Subtotal.Equal(dec("9000000")))

		var count int64
		require.NoError(t, db.Table("quote_items").Where("quote_id = ?", q.ID).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("other tenants cannot see the quote", func(t *testing.T) {
		_, err := repo.FindByIDForTenant(ctx, uuid.New(), q.ID)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})

	t.Run("list and count apply status filter", func(t *testing.T) {
		second := newTestQuote(t, tenantID, "COT-2026-000002", "5000000")
		require.NoError(t, second.Send(repoNow))
		require.NoError(t, repo.Save(ctx, second))

		sent := finance.QuoteStatusSent
		filter := finance.QuoteFilter{Filter: shared.DefaultFilter(), Status: &sent}
		list, err := repo.FindAllForTenant(ctx, tenantID, filter)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Empty(t, list[0].Items, "lists do not load items")

		total, err := repo.CountForTenant(ctx, tenantID, finance.QuoteFilter{Filter: shared.DefaultFilter()})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
	})
}

func TestGormQuoteRepository_NumberIsUniquePerTenant(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormQuoteRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	require.NoError(t, repo.Save(ctx, newTestQuote(t, tenantID, "COT-2026-000001", "100")))
	require.Error(t, repo.Save(ctx, newTestQuote(t, tenantID, "COT-2026-000001", "100")))
	require.NoError(t, repo.Save(ctx, newTestQuote(t, uuid.New(), "COT-2026-000001", "100")), "another tenant may reuse the number")
}

func TestGormInvoiceRepository_OverdueCandidates(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()

	soon := newTestInvoice(t, tenantID, "FAC-2026-000001", repoNow.AddDate(0, 0, 1), "1000000")
	require.NoError(t, soon.TransitionTo(finance.InvoiceStatusUnpaid, repoNow))
	later := newTestInvoice(t, tenantID, "FAC-2026-000002", repoNow.AddDate(0, 0, 30), "1000000")
	require.NoError(t, later.TransitionTo(finance.InvoiceStatusUnpaid, repoNow))
	draft := newTestInvoice(t, tenantID, "FAC-2026-000003", repoNow.AddDate(0, 0, 1), "1000000")
	for _, inv := range []*finance.Invoice{soon, later, draft} {
		require.NoError(t, repo.Save(ctx, inv))
	}

	candidates, err := repo.FindOverdueCandidates(ctx, tenantID, repoNow.AddDate(0, 0, 5), 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, soon.ID, candidates[0].ID)

	ids, err := repo.FindIDsForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	loaded, err := repo.FindByIDForTenant(ctx, tenantID, soon.ID)
	require.NoError(t, err)
	assert.True(t, loaded.AmountDue.Equal(loaded.Total))
	assert.Len(t, loaded.Items, 1)
}

func TestGormPaymentRepository_FindMatchCandidates(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	invoices := NewGormInvoiceRepository(db)
	payments := NewGormPaymentRepository(db)
	bankTxs := NewGormBankTransactionRepository(db)
	accounts := NewGormBankAccountRepository(db)

	inv := newTestInvoice(t, tenantID, "FAC-2026-000001", repoNow.AddDate(0, 0, 30), "10000000")
	require.NoError(t, invoices.Save(ctx, inv))

	linked := newTestPayment(t, inv, "PAG-2026-000001", "500000", repoNow)
	free := newTestPayment(t, inv, "PAG-2026-000002", "500000", repoNow.Add(24*time.Hour))
	otherAmount := newTestPayment(t, inv, "PAG-2026-000003", "750000", repoNow)
	outside := newTestPayment(t, inv, "PAG-2026-000004", "500000", repoNow.AddDate(0, 0, 10))
	for _, p := range []*finance.Payment{linked, free, otherAmount, outside} {
		require.NoError(t, payments.Save(ctx, p))
	}

	acc, err := finance.NewBankAccount(tenantID, uuid.New(), "Operating", "Banco Estado", "0011223344", "CLP", repoNow)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, acc))
	tx, err := finance.NewBankTransaction(acc, uuid.New(), finance.BankTransactionInput{TransactionDate: repoNow, Amount: dec("500000")}, repoNow)
	require.NoError(t, err)
	require.NoError(t, tx.Reconcile(linked.ID, uuid.New(), repoNow))
	require.NoError(t, bankTxs.Save(ctx, tx))

	from, to := repoNow.AddDate(0, 0, -3), repoNow.AddDate(0, 0, 4)
	candidates, err := payments.FindMatchCandidates(ctx, tenantID, dec("500000"), from, to)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, free.ID, candidates[0].ID)

	isLinked, err := bankTxs.IsPaymentLinked(ctx, tenantID, linked.ID)
	require.NoError(t, err)
	assert.True(t, isLinked)
	isLinked, err = bankTxs.IsPaymentLinked(ctx, tenantID, free.ID)
	require.NoError(t, err)
	assert.False(t, isLinked)

	reconciled, err := bankTxs.FindReconciled(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, reconciled, 1)
	require.NotNil(t, reconciled[0].PaymentID)
	assert.Equal(t, linked.ID, *reconciled[0].PaymentID)

	t.Run("a payment cannot back two reconciled rows", func(t *testing.T) {
		dup, err := finance.NewBankTransaction(acc, uuid.New(), finance.BankTransactionInput{TransactionDate: repoNow, Amount: dec("500000")}, repoNow)
		require.NoError(t, err)
		require.NoError(t, dup.Reconcile(linked.ID, uuid.New(), repoNow))
		assert.Error(t, bankTxs.Save(ctx, dup))
	})

	t.Run("payments of an invoice come oldest first", func(t *testing.T) {
		list, err := payments.FindByInvoice(ctx, tenantID, inv.ID)
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})
}

func TestGormBankTransactionRepository_FindUnreconciled(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	accounts := NewGormBankAccountRepository(db)
	bankTxs := NewGormBankTransactionRepository(db)

	acc, err := finance.NewBankAccount(tenantID, uuid.New(), "Operating", "", "998877", "CLP", repoNow)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, acc))

	var ids []uuid.UUID
	for i := 3; i >= 1; i-- {
		tx, err := finance.NewBankTransaction(acc, uuid.New(), finance.BankTransactionInput{
			TransactionDate: repoNow.AddDate(0, 0, -i),
			Amount:          dec("1000"),
		}, repoNow)
		require.NoError(t, err)
		require.NoError(t, bankTxs.Save(ctx, tx))
		ids = append(ids, tx.ID)
	}
	// Same date and creation time: only the ID orders these two.
	var tied []uuid.UUID
	for range 2 {
		tx, err := finance.NewBankTransaction(acc, uuid.New(), finance.BankTransactionInput{
			TransactionDate: repoNow,
			Amount:          dec("2000"),
		}, repoNow)
		require.NoError(t, err)
		require.NoError(t, bankTxs.Save(ctx, tx))
		tied = append(tied, tx.ID)
	}
	sort.Slice(tied, func(i, j int) bool { return tied[i].String() < tied[j].String() })
	ids = append(ids, tied...)

	page, err := bankTxs.FindUnreconciled(ctx, tenantID, acc.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID, "oldest first")
	assert.Equal(t, ids[1], page[1].ID)

	t.Run("cursor walks every row once", func(t *testing.T) {
		var (
			seen   []uuid.UUID
			cursor *finance.StatementCursor
		)
		for {
			page, err := bankTxs.FindUnreconciled(ctx, tenantID, acc.ID, cursor, 2)
			require.NoError(t, err)
			for i := range page {
				seen = append(seen, page[i].ID)
			}
			if len(page) < 2 {
				break
			}
			last := finance.CursorOf(&page[len(page)-1])
			cursor = &last
		}
		assert.Equal(t, ids, seen)
	})

	all, err := accounts.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSaveWithLock_RejectsStaleCopies(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	invoices := NewGormInvoiceRepository(db)
	payments := NewGormPaymentRepository(db)
	notes := NewGormCreditNoteRepository(db)

	inv := newTestInvoice(t, tenantID, "FAC-2026-000010", repoNow.AddDate(0, 0, 30), "1000000")
	require.NoError(t, invoices.Save(ctx, inv))

	t.Run("payment", func(t *testing.T) {
		p := newTestPayment(t, inv, "PAG-2026-000010", "100000", repoNow)
		require.NoError(t, payments.Save(ctx, p))

		first, err := payments.FindByIDForUpdate(ctx, tenantID, p.ID)
		require.NoError(t, err)
		stale, err := payments.FindByIDForTenant(ctx, tenantID, p.ID)
		require.NoError(t, err)

		require.NoError(t, first.Refund("cheque rechazado", repoNow.Add(time.Hour)))
		require.NoError(t, payments.SaveWithLock(ctx, first))

		require.NoError(t, stale.Refund("cheque rechazado", repoNow.Add(2*time.Hour)))
		err = payments.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		stored, err := payments.FindByIDForTenant(ctx, tenantID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Version, stored.Version)
		assert.True(t, stored.UpdatedAt.Equal(repoNow.Add(time.Hour)))
	})

	t.Run("credit note", func(t *testing.T) {
		note, err := finance.NewCreditNote(inv, nil, finance.NewCreditNoteParams{
			CreditNoteNumber: "NC-2026-000010",
			Amount:           dec("50000"),
			Reason:           "descuento",
			CreatedBy:        uuid.New(),
			Now:              repoNow,
		})
		require.NoError(t, err)
		require.NoError(t, notes.Save(ctx, note))

		first, err := notes.FindByIDForUpdate(ctx, tenantID, note.ID)
		require.NoError(t, err)
		stale, err := notes.FindByIDForTenant(ctx, tenantID, note.ID)
		require.NoError(t, err)

		require.NoError(t, first.Apply(repoNow.Add(time.Hour)))
		require.NoError(t, notes.SaveWithLock(ctx, first))

		require.NoError(t, stale.Apply(repoNow.Add(2*time.Hour)))
		assert.ErrorIs(t, notes.SaveWithLock(ctx, stale), shared.ErrConcurrencyConflict)

		stored, err := notes.FindByIDForTenant(ctx, tenantID, note.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.CreditNoteStatusApplied, stored.Status)
		assert.Equal(t, first.Version, stored.Version)
	})
}

func TestGormAuditRepository_AppendAndList(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormAuditRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	actor := shared.Actor{UserID: uuid.New(), TenantID: tenantID, Role: shared.RoleAccountant}

	q := newTestQuote(t, tenantID, "COT-2026-000009", "100000")
	var entries []finance.AuditEntry
	for _, ev := range q.PullDomainEvents() {
		entries = append(entries, finance.NewAuditEntry(actor, ev))
	}
	require.NotEmpty(t, entries)
	require.NoError(t, repo.Append(ctx, entries...))
	require.NoError(t, repo.Append(ctx), "appending nothing is a no-op")

	filter := finance.AuditFilter{Filter: shared.DefaultFilter(), EntityID: &q.ID}
	list, err := repo.FindAllForTenant(ctx, tenantID, filter)
	require.NoError(t, err)
	require.Len(t, list, len(entries))
	assert.Equal(t, "COT-2026-000009", list[0].EntityNumber)
	assert.Equal(t, shared.RoleAccountant, list[0].ActorRole)
	assert.Contains(t, list[0].Changes, "quoteNumber")

	count, err := repo.CountForTenant(ctx, uuid.New(), filter)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGormPartyDirectory(t *testing.T) {
	db := newSQLiteDB(t)
	dir := NewGormPartyDirectory(db)
	ctx := context.Background()
	tenantID := uuid.New()

	customer := &models.CustomerModel{BaseModel: models.BaseModel{ID: uuid.New()}, TenantID: tenantID, Name: "Camila Rojas", TaxID: "12.345.678-5", IsActive: true}
	team := &models.TeamModel{BaseModel: models.BaseModel{ID: uuid.New()}, TenantID: tenantID, Name: "Sucursal Centro", IsActive: true}
	require.NoError(t, dir.SaveCustomer(ctx, customer))
	require.NoError(t, dir.SaveTeam(ctx, team))

	ok, err := dir.CustomerExists(ctx, tenantID, customer.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.CustomerExists(ctx, uuid.New(), customer.ID)
	require.NoError(t, err)
	assert.False(t, ok, "customer of another tenant")

	ok, err = dir.TeamExists(ctx, tenantID, team.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, db.Model(&models.TeamModel{}).Where("id = ?", team.ID).Update("is_active", false).Error)
	ok, err = dir.TeamExists(ctx, tenantID, team.ID)
	require.NoError(t, err)
	assert.False(t, ok, "inactive teams are not resolvable")
}
