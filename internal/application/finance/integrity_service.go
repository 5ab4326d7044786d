package finance

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const integrityQuotePageSize = 100

// IntegrityService recomputes stored balances from the ledger and reports drift
type IntegrityService struct {
	base
}

// NewIntegrityService creates a new IntegrityService
func NewIntegrityService(deps Dependencies) *IntegrityService {
	return &IntegrityService{base: newBase(deps)}
}

// Verify checks every invoice balance against its payments and credit notes, every quote's
// totals against its items and the one-to-one payment links of reconciled bank rows.
// It only reads; violations are reported, never repaired.
func (s *IntegrityService) Verify(ctx context.Context, actor shared.Actor) (*IntegrityReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "integrity", "verify", telemetry.SpanAttrTenantID, actor.TenantID.String())
	defer span.End()

	if err := actor.Authorize(shared.RoleAccountant); err != nil {
		return nil, err
	}

	report := &IntegrityReport{
		TenantID:   actor.TenantID,
		CheckedAt:  s.now(),
		Violations: []finance.IntegrityViolation{},
	}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.verifyInvoices(ctx, repos, actor.TenantID, report); err != nil {
			return err
		}
		if err := s.verifyQuotes(ctx, repos, actor.TenantID, report); err != nil {
			return err
		}
		reconciled, err := repos.BankTransactionRepo().FindReconciled(ctx, actor.TenantID)
		if err != nil {
			return err
		}
		report.LinksChecked = len(reconciled)
		report.Violations = append(report.Violations, finance.VerifyReconciliationLinks(reconciled)...)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, "violations", len(report.Violations))
	if !report.OK() {
		s.logger.Warn("integrity violations found",
			zap.String("tenant_id", actor.TenantID.String()),
			zap.Int("violations", len(report.Violations)),
		)
	}
	return report, nil
}

func (s *IntegrityService) verifyInvoices(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, report *IntegrityReport) error {
	ids, err := repos.InvoiceRepo().FindIDsForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		inv, err := repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		payments, err := repos.PaymentRepo().FindByInvoice(ctx, tenantID, id)
		if err != nil {
			return err
		}
		notes, err := repos.CreditNoteRepo().FindByInvoice(ctx, tenantID, id)
		if err != nil {
			return err
		}
		report.Violations = append(report.Violations, finance.VerifyInvoice(inv, payments, notes)...)
	}
	report.InvoicesChecked = len(ids)
	return nil
}

func (s *IntegrityService) verifyQuotes(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, report *IntegrityReport) error {
	filter := finance.QuoteFilter{Filter: shared.Filter{Page: 1, PageSize: integrityQuotePageSize, OrderBy: "created_at", OrderDir: "asc"}}
	for {
		page, err := repos.QuoteRepo().FindAllForTenant(ctx, tenantID, filter)
		if err != nil {
			return err
		}
		for i := range page {
			q, err := repos.QuoteRepo().FindByIDForTenant(ctx, tenantID, page[i].ID)
			if err != nil {
				return err
			}
			report.Violations = append(report.Violations, finance.VerifyQuote(q, s.calc)...)
		}
		report.QuotesChecked += len(page)
		if len(page) < integrityQuotePageSize {
			return nil
		}
		filter.Page++
	}
}
