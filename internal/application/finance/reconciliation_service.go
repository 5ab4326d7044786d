package finance

import (
	"context"
	"errors"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrLockHeld is returned by a Locker when another holder owns the key
var ErrLockHeld = errors.New("lock is held by another process")

// Locker serializes long-running jobs across processes
type Locker interface {
	// Acquire claims key for ttl. The returned release func frees it early.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// ReconciliationService pairs bank statement rows with recorded payments
type ReconciliationService struct {
	base
	matcher *finance.PaymentMatcher
	locker  Locker
}

// NewReconciliationService creates a new ReconciliationService. locker may be nil.
func NewReconciliationService(deps Dependencies, locker Locker) *ReconciliationService {
	b := newBase(deps)
	return &ReconciliationService{
		base:    b,
		matcher: finance.NewPaymentMatcher(b.cfg.MatchWindowDays),
		locker:  locker,
	}
}

// CreateBankAccount registers a bank account
func (s *ReconciliationService) CreateBankAccount(ctx context.Context, actor shared.Actor, req CreateBankAccountRequest) (*BankAccountResponse, error) {
	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	acc, err := finance.NewBankAccount(actor.TenantID, actor.UserID, req.Name, req.BankName, req.AccountNumber, currency, s.now())
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.BankAccountRepo().Save(ctx, acc); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, acc)
	})
	if err != nil {
		return nil, err
	}
	resp := ToBankAccountResponse(acc)
	return &resp, nil
}

// ListBankAccounts returns every bank account of the tenant
func (s *ReconciliationService) ListBankAccounts(ctx context.Context, actor shared.Actor) ([]BankAccountResponse, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, err
	}
	var accounts []finance.BankAccount
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		accounts, err = repos.BankAccountRepo().FindAllForTenant(ctx, actor.TenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]BankAccountResponse, len(accounts))
	for i := range accounts {
		out[i] = ToBankAccountResponse(&accounts[i])
	}
	return out, nil
}

// ImportTransactions stores statement rows as unreconciled bank transactions
func (s *ReconciliationService) ImportTransactions(ctx context.Context, actor shared.Actor, accountID uuid.UUID, req ImportTransactionsRequest) ([]BankTransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "import",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrBankAccountID, accountID.String(),
		telemetry.SpanAttrBatchSize, len(req.Rows),
	)
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}

	var imported []finance.BankTransaction
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := repos.BankAccountRepo().FindByIDForTenant(ctx, actor.TenantID, accountID)
		if err != nil {
			return err
		}
		now := s.now()
		for i, row := range req.Rows {
			tx, err := finance.NewBankTransaction(acc, actor.UserID, finance.BankTransactionInput{
				TransactionDate: row.TransactionDate,
				Amount:          row.Amount,
				Description:     row.Description,
				Reference:       row.Reference,
			}, now)
			if err != nil {
				if de, ok := shared.AsDomainError(err); ok {
					return de.WithDetail("row", i+1)
				}
				return err
			}
			if err := repos.BankTransactionRepo().Save(ctx, tx); err != nil {
				return err
			}
			if err := recordAudit(ctx, repos, actor, tx); err != nil {
				return err
			}
			imported = append(imported, *tx)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("bank transactions imported",
		zap.String("bank_account_id", accountID.String()),
		zap.Int("count", len(imported)),
	)
	return ToBankTransactionResponses(imported), nil
}

// ListTransactions returns a page of bank transactions
func (s *ReconciliationService) ListTransactions(ctx context.Context, actor shared.Actor, filter BankTransactionListFilter) ([]BankTransactionResponse, int64, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.BankTransactionFilter{
		Filter:        filter.toShared(),
		BankAccountID: filter.BankAccountID,
		Reconciled:    filter.Reconciled,
	}
	var (
		txs   []finance.BankTransaction
		total int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if txs, err = repos.BankTransactionRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.BankTransactionRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToBankTransactionResponses(txs), total, nil
}

// AutoReconcile walks the account's unreconciled transactions page by page, oldest first,
// and stops at the end of the statement or after ReconciliationMaxPages pages.
// A payment is matched when it is COMPLETED, has exactly the same amount, is dated within
// the match window and is not linked yet. Each payment is claimed at most once per run.
func (s *ReconciliationService) AutoReconcile(ctx context.Context, actor shared.Actor, accountID uuid.UUID) (*finance.ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "auto",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrBankAccountID, accountID.String(),
	)
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "reconcile:"+actor.TenantID.String()+":"+accountID.String(), s.cfg.ReconciliationLockTTL)
		if errors.Is(err, ErrLockHeld) {
			return nil, shared.NewStateConflictError(finance.CodeReconciliationInProgress, "an automatic reconciliation is already running for this bank account")
		}
		if err != nil {
			return nil, shared.NewInternalError("could not acquire the reconciliation lock", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("reconciliation lock release failed", zap.Error(err))
			}
		}()
	}

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		_, err := repos.BankAccountRepo().FindByIDForTenant(ctx, actor.TenantID, accountID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &finance.ReconciliationReport{Mode: finance.ReconciliationModeAuto, Details: []finance.ReconciliationDetail{}}
	claimed := make(map[uuid.UUID]bool)
	var (
		cursor *finance.StatementCursor
		pages  int
	)
	for {
		if pages == s.cfg.ReconciliationMaxPages {
			report.Truncated = true
			break
		}
		next, more, err := s.reconcilePage(ctx, actor, accountID, cursor, claimed, report)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		pages++
		if !more {
			break
		}
		cursor = next
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrBatchSize, len(report.Details),
		"reconciled", report.Reconciled,
		"failed", report.Failed,
	)
	s.logger.Info("automatic reconciliation finished",
		zap.String("bank_account_id", accountID.String()),
		zap.Int("reconciled", report.Reconciled),
		zap.Int("failed", report.Failed),
		zap.Int("pages", pages),
		zap.Bool("truncated", report.Truncated),
	)
	return report, nil
}

// reconcilePage matches one page after cursor in its own transaction. It returns the
// position of the last row read and whether a full page was read.
func (s *ReconciliationService) reconcilePage(ctx context.Context, actor shared.Actor, accountID uuid.UUID, cursor *finance.StatementCursor, claimed map[uuid.UUID]bool, report *finance.ReconciliationReport) (*finance.StatementCursor, bool, error) {
	var (
		details []finance.ReconciliationDetail
		matched []uuid.UUID
		next    *finance.StatementCursor
		full    bool
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		details, matched = details[:0], matched[:0]
		pending, err := repos.BankTransactionRepo().FindUnreconciled(ctx, actor.TenantID, accountID, cursor, s.cfg.ReconciliationBatchSize)
		if err != nil {
			return err
		}
		full = len(pending) == s.cfg.ReconciliationBatchSize
		if len(pending) > 0 {
			last := finance.CursorOf(&pending[len(pending)-1])
			next = &last
		}
		now := s.now()
		taken := make(map[uuid.UUID]bool, len(claimed))
		for id := range claimed {
			taken[id] = true
		}
		for i := range pending {
			tx, err := repos.BankTransactionRepo().FindByIDForUpdate(ctx, actor.TenantID, pending[i].ID)
			if err != nil {
				return err
			}
			if tx.Reconciled {
				continue
			}
			payment, err := s.findMatch(ctx, repos, actor.TenantID, tx, taken)
			if err != nil {
				return err
			}
			if payment == nil {
				details = append(details, finance.ReconciliationDetail{TransactionID: tx.ID, Outcome: finance.MatchOutcomeNoMatch})
				continue
			}
			if err := tx.Reconcile(payment.ID, actor.UserID, now); err != nil {
				return err
			}
			if err := repos.BankTransactionRepo().Save(ctx, tx); err != nil {
				return err
			}
			if err := recordAudit(ctx, repos, actor, tx); err != nil {
				return err
			}
			taken[payment.ID] = true
			matched = append(matched, payment.ID)
			paymentID := payment.ID
			details = append(details, finance.ReconciliationDetail{TransactionID: tx.ID, PaymentID: &paymentID, Outcome: finance.MatchOutcomeMatched})
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	for _, id := range matched {
		claimed[id] = true
	}
	for _, d := range details {
		report.Add(d)
	}
	return next, full, nil
}

// findMatch picks the candidate payment for tx and locks it, so a concurrent cancel
// either finishes first (and the payment is skipped) or waits for the link to commit.
func (s *ReconciliationService) findMatch(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, tx *finance.BankTransaction, taken map[uuid.UUID]bool) (*finance.Payment, error) {
	from, to := s.matcher.Window(tx)
	candidates, err := repos.PaymentRepo().FindMatchCandidates(ctx, tenantID, tx.Amount, from, to)
	if err != nil {
		return nil, err
	}
	for {
		match := s.matcher.Match(tx, candidates, taken)
		if match == nil {
			return nil, nil
		}
		locked, err := repos.PaymentRepo().FindByIDForUpdate(ctx, tenantID, match.ID)
		if err != nil {
			return nil, err
		}
		if locked.IsCompleted() {
			return locked, nil
		}
		taken[match.ID] = true
	}
}

// ManualReconcile links transactionIDs[i] with paymentIDs[i]. Every pair is validated and
// committed on its own; a failing pair is reported and does not affect the others.
func (s *ReconciliationService) ManualReconcile(ctx context.Context, actor shared.Actor, accountID uuid.UUID, req ManualReconcileRequest) (*finance.ReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "manual",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrBankAccountID, accountID.String(),
		telemetry.SpanAttrBatchSize, len(req.TransactionIDs),
	)
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}
	if len(req.TransactionIDs) != len(req.PaymentIDs) {
		return nil, shared.NewValidationError("LENGTH_MISMATCH", "transaction_ids and payment_ids must have the same length").
			WithDetail("transactionCount", len(req.TransactionIDs)).
			WithDetail("paymentCount", len(req.PaymentIDs))
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		_, err := repos.BankAccountRepo().FindByIDForTenant(ctx, actor.TenantID, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &finance.ReconciliationReport{Mode: finance.ReconciliationModeManual, Details: []finance.ReconciliationDetail{}}
	for i := range req.TransactionIDs {
		txID, paymentID := req.TransactionIDs[i], req.PaymentIDs[i]
		detail := finance.ReconciliationDetail{TransactionID: txID, PaymentID: &paymentID, Outcome: finance.MatchOutcomeReconciled}
		if err := s.reconcilePair(ctx, actor, accountID, txID, paymentID); err != nil {
			detail.Outcome = finance.MatchOutcomeFailed
			detail.Error = err.Error()
			if de, ok := shared.AsDomainError(err); ok {
				detail.Error = de.Message
				detail.ErrorCode = de.Code
			}
			if shared.IsKind(err, shared.KindInternal) {
				s.logger.Error("manual reconciliation pair failed",
					zap.String("transaction_id", txID.String()),
					zap.String("payment_id", paymentID.String()),
					zap.Error(err),
				)
			}
		}
		report.Add(detail)
	}

	s.logger.Info("manual reconciliation finished",
		zap.String("bank_account_id", accountID.String()),
		zap.Int("reconciled", report.Reconciled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ReconciliationService) reconcilePair(ctx context.Context, actor shared.Actor, accountID, txID, paymentID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.BankTransactionRepo().FindByIDForUpdate(ctx, actor.TenantID, txID)
		if err != nil {
			return err
		}
		if tx.BankAccountID != accountID {
			return shared.NewValidationError(finance.CodeAccountMismatch, "bank transaction does not belong to this bank account")
		}
		payment, err := repos.PaymentRepo().FindByIDForUpdate(ctx, actor.TenantID, paymentID)
		if err != nil {
			return err
		}
		linked, err := repos.BankTransactionRepo().IsPaymentLinked(ctx, actor.TenantID, paymentID)
		if err != nil {
			return err
		}
		if err := tx.CheckPaymentLink(payment, linked); err != nil {
			return err
		}
		if err := tx.Reconcile(payment.ID, actor.UserID, s.now()); err != nil {
			return err
		}
		if err := repos.BankTransactionRepo().Save(ctx, tx); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, tx)
	})
}
