package scheduler

import (
	"context"
	"errors"
	"fmt"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemUserID identifies the scheduler in audit entries
var SystemUserID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("dealerdesk.finance.scheduler"))

// SystemActor is the identity background jobs act under for a tenant
func SystemActor(tenantID uuid.UUID) shared.Actor {
	return shared.Actor{UserID: SystemUserID, TenantID: tenantID, Role: shared.RoleAccountant}
}

// OverdueRefresher flags overdue invoices
type OverdueRefresher interface {
	RefreshOverdue(ctx context.Context, actor shared.Actor) (*appfinance.OverdueRefreshResponse, error)
}

// AccountReconciler lists bank accounts and matches their statement rows
type AccountReconciler interface {
	ListBankAccounts(ctx context.Context, actor shared.Actor) ([]appfinance.BankAccountResponse, error)
	AutoReconcile(ctx context.Context, actor shared.Actor, accountID uuid.UUID) (*finance.ReconciliationReport, error)
}

// FinanceExecutor runs finance sweeps through the application services
type FinanceExecutor struct {
	invoices   OverdueRefresher
	reconciler AccountReconciler
	logger     *zap.Logger
}

// NewFinanceExecutor creates a FinanceExecutor
func NewFinanceExecutor(invoices OverdueRefresher, reconciler AccountReconciler, logger *zap.Logger) *FinanceExecutor {
	return &FinanceExecutor{invoices: invoices, reconciler: reconciler, logger: logger}
}

// Execute implements JobExecutor
func (e *FinanceExecutor) Execute(ctx context.Context, job *Job) error {
	actor := SystemActor(job.TenantID)
	switch job.Kind {
	case JobKindOverdueRefresh:
		_, err := e.invoices.RefreshOverdue(ctx, actor)
		return err
	case JobKindAutoReconcile:
		return e.reconcileAccounts(ctx, actor)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}

// reconcileAccounts runs one matcher page per active account. An account already being
// reconciled elsewhere is skipped; other failures are joined so one account does not
// hide another.
func (e *FinanceExecutor) reconcileAccounts(ctx context.Context, actor shared.Actor) error {
	accounts, err := e.reconciler.ListBankAccounts(ctx, actor)
	if err != nil {
		return err
	}

	var errs []error
	for _, acc := range accounts {
		if !acc.IsActive {
			continue
		}
		report, err := e.reconciler.AutoReconcile(ctx, actor, acc.ID)
		if de, ok := shared.AsDomainError(err); ok && de.Code == finance.CodeReconciliationInProgress {
			e.logger.Debug("bank account busy, skipping", zap.String("bank_account_id", acc.ID.String()))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("bank account %s: %w", acc.ID, err))
			continue
		}
		if report.Reconciled > 0 {
			e.logger.Info("scheduled reconciliation matched transactions",
				zap.String("tenant_id", actor.TenantID.String()),
				zap.String("bank_account_id", acc.ID.String()),
				zap.Int("reconciled", report.Reconciled),
			)
		}
	}
	return errors.Join(errs...)
}

var _ JobExecutor = (*FinanceExecutor)(nil)
