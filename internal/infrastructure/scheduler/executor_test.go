package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/scheduler"
	"github.com/dealerdesk/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSystemActor(t *testing.T) {
	tenantID := uuid.New()
	actor := scheduler.SystemActor(tenantID)
	assert.Equal(t, tenantID, actor.TenantID)
	assert.Equal(t, scheduler.SystemUserID, actor.UserID)
	assert.NotEqual(t, uuid.Nil, actor.UserID)
	assert.NoError(t, actor.Authorize(shared.RoleAccountant))
}

func TestFinanceExecutor_OverdueRefresh(t *testing.T) {
	h := testutil.NewHarness(t)
	manager := h.Actor(shared.RoleManager)
	req := h.CarInvoice("300000")
	due := testutil.Epoch.AddDate(0, 0, 10)
	req.DueDate = &due
	inv, err := h.Services.Invoices.Create(t.Context(), manager, req)
	require.NoError(t, err)
	_, err = h.Services.Invoices.Issue(t.Context(), manager, inv.ID)
	require.NoError(t, err)

	exec := scheduler.NewFinanceExecutor(h.Services.Invoices, h.Services.Reconciliation, h.Logger)
	h.Clock.Advance(11 * 24 * time.Hour)
	require.NoError(t, exec.Execute(t.Context(), scheduler.NewJob(h.TenantID, scheduler.JobKindOverdueRefresh, 0)))

	got, err := h.Services.Invoices.GetByID(t.Context(), manager, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, string(finance.InvoiceStatusOverdue), got.Status)

	entries, _, err := h.Services.Audit.List(t.Context(), manager, appfinance.AuditListFilter{EntityID: &inv.ID})
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, scheduler.SystemUserID, last.ActorID)
}

func TestFinanceExecutor_AutoReconcile(t *testing.T) {
	h := testutil.NewHarness(t)
	accountant := h.Actor(shared.RoleAccountant)
	inv, err := h.Services.Invoices.Create(t.Context(), h.Actor(shared.RoleManager), h.CarInvoice("100000"))
	require.NoError(t, err)
	_, err = h.Services.Invoices.Issue(t.Context(), h.Actor(shared.RoleManager), inv.ID)
	require.NoError(t, err)
	_, err = h.Services.Payments.Record(t.Context(), accountant, appfinance.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: testutil.Dec("119000"), Method: string(finance.PaymentMethodBankTransfer),
	})
	require.NoError(t, err)

	acc, err := h.Services.Reconciliation.CreateBankAccount(t.Context(), accountant, appfinance.CreateBankAccountRequest{
		Name: "Cuenta corriente", AccountNumber: "00-123-45678-09",
	})
	require.NoError(t, err)
	_, err = h.Services.Reconciliation.ImportTransactions(t.Context(), accountant, acc.ID, appfinance.ImportTransactionsRequest{
		Rows: []appfinance.ImportTransactionRow{{TransactionDate: testutil.Epoch, Amount: testutil.Dec("119000"), Description: "TRANSF"}},
	})
	require.NoError(t, err)

	exec := scheduler.NewFinanceExecutor(h.Services.Invoices, h.Services.Reconciliation, h.Logger)
	require.NoError(t, exec.Execute(t.Context(), scheduler.NewJob(h.TenantID, scheduler.JobKindAutoReconcile, 0)))

	reconciled := true
	txs, _, err := h.Services.Reconciliation.ListTransactions(t.Context(), accountant, appfinance.BankTransactionListFilter{Reconciled: &reconciled})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, 1, h.Logs.FilterMessage("scheduled reconciliation matched transactions").Len())
}

type stubReconciler struct {
	accounts []appfinance.BankAccountResponse
	errs     map[uuid.UUID]error
	calls    []uuid.UUID
}

func (s *stubReconciler) ListBankAccounts(context.Context, shared.Actor) ([]appfinance.BankAccountResponse, error) {
	return s.accounts, nil
}

func (s *stubReconciler) AutoReconcile(_ context.Context, _ shared.Actor, accountID uuid.UUID) (*finance.ReconciliationReport, error) {
	s.calls = append(s.calls, accountID)
	if err := s.errs[accountID]; err != nil {
		return nil, err
	}
	return &finance.ReconciliationReport{Mode: finance.ReconciliationModeAuto}, nil
}

func TestFinanceExecutor_AutoReconcileErrors(t *testing.T) {
	busy, broken, inactive, fine := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	stub := &stubReconciler{
		accounts: []appfinance.BankAccountResponse{
			{ID: busy, IsActive: true},
			{ID: broken, IsActive: true},
			{ID: inactive},
			{ID: fine, IsActive: true},
		},
		errs: map[uuid.UUID]error{
			busy:   shared.NewStateConflictError(finance.CodeReconciliationInProgress, "busy"),
			broken: errors.New("statement table locked"),
		},
	}

	exec := scheduler.NewFinanceExecutor(nil, stub, zap.NewNop())
	err := exec.Execute(context.Background(), scheduler.NewJob(uuid.New(), scheduler.JobKindAutoReconcile, 0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), broken.String())
	assert.NotContains(t, err.Error(), busy.String())
	assert.Equal(t, []uuid.UUID{busy, broken, fine}, stub.calls)
}

func TestFinanceExecutor_UnknownKind(t *testing.T) {
	exec := scheduler.NewFinanceExecutor(nil, nil, zap.NewNop())
	err := exec.Execute(context.Background(), scheduler.NewJob(uuid.New(), scheduler.JobKind("REPORTS"), 0))
	assert.ErrorIs(t, err, scheduler.ErrUnknownJobKind)
}
