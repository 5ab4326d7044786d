package finance

import (
	"context"
	"fmt"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// recordAudit drains the pending events of the aggregates into audit entries
// written through the transaction's audit repository
func recordAudit(ctx context.Context, repos TransactionalRepositories, actor shared.Actor, aggregates ...shared.AggregateRoot) error {
	var entries []finance.AuditEntry
	for _, agg := range aggregates {
		if agg == nil {
			continue
		}
		for _, ev := range agg.PullDomainEvents() {
			entries = append(entries, finance.NewAuditEntry(actor, ev))
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if err := repos.AuditRepo().Append(ctx, entries...); err != nil {
		return fmt.Errorf("append audit entries: %w", err)
	}
	return nil
}

// nextNumber allocates a document number for the year of now inside the transaction
func nextNumber(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, docType finance.DocumentType, year int) (string, error) {
	number, err := finance.NewDocumentNumberer(repos.Sequences()).NextNumber(ctx, tenantID, docType, year)
	if err != nil {
		return "", shared.NewInternalError("could not allocate a document number", err)
	}
	return number, nil
}

// AuditService exposes the audit trail
type AuditService struct {
	base
}

// NewAuditService creates a new AuditService
func NewAuditService(deps Dependencies) *AuditService {
	return &AuditService{base: newBase(deps)}
}

// List returns audit entries, newest first
func (s *AuditService) List(ctx context.Context, actor shared.Actor, filter AuditListFilter) ([]finance.AuditEntry, int64, error) {
	if err := actor.Authorize(auditRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.AuditFilter{Filter: filter.toShared(), EntityType: filter.EntityType, EntityID: filter.EntityID, ActorID: filter.ActorID}

	var (
		entries []finance.AuditEntry
		total   int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if entries, err = repos.AuditRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.AuditRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
