package finance

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreditNoteService issues, applies and cancels credit notes
type CreditNoteService struct {
	base
}

// NewCreditNoteService creates a new CreditNoteService
func NewCreditNoteService(deps Dependencies) *CreditNoteService {
	return &CreditNoteService{base: newBase(deps)}
}

// Issue creates a credit note against an invoice. Without auto-apply the note stays DRAFT;
// with it the note is issued and applied to the invoice balance in the same transaction.
func (s *CreditNoteService) Issue(ctx context.Context, actor shared.Actor, req IssueCreditNoteRequest) (*CreditNoteResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_note", "issue",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}

	var (
		invoice *finance.Invoice
		note    *finance.CreditNote
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, req.InvoiceID)
		if err != nil {
			return err
		}
		existing, err := repos.CreditNoteRepo().FindByInvoice(ctx, actor.TenantID, invoice.ID)
		if err != nil {
			return err
		}
		now := s.now()
		number, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypeCreditNote, now.Year())
		if err != nil {
			return err
		}
		note, err = finance.NewCreditNote(invoice, existing, finance.NewCreditNoteParams{
			CreditNoteNumber: number,
			Amount:           req.Amount,
			Reason:           req.Reason,
			Issue:            req.AutoApply,
			CreatedBy:        actor.UserID,
			Now:              now,
		})
		if err != nil {
			return err
		}
		if req.AutoApply {
			if err := applyNote(note, invoice, now); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
				return err
			}
		}
		if err := repos.CreditNoteRepo().Save(ctx, note); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, note, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCreditNoteID, note.ID.String(),
		telemetry.SpanAttrDocNumber, note.CreditNoteNumber,
		telemetry.SpanAttrStatus, string(note.Status),
	)
	s.logger.Info("credit note issued",
		zap.String("credit_note_number", note.CreditNoteNumber),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", note.Amount.String()),
		zap.Bool("applied", note.Status == finance.CreditNoteStatusApplied),
	)
	return &CreditNoteResultResponse{
		CreditNote: ToCreditNoteResponse(note),
		Invoice:    ToInvoiceResponse(invoice),
	}, nil
}

// Apply applies a DRAFT or ISSUED note to its invoice
func (s *CreditNoteService) Apply(ctx context.Context, actor shared.Actor, id uuid.UUID) (*CreditNoteResultResponse, error) {
	return s.mutate(ctx, actor, id, "apply", func(note *finance.CreditNote, inv *finance.Invoice) error {
		return applyNote(note, inv, s.now())
	})
}

// Cancel voids a note, reversing its effect on the invoice when it had been applied
func (s *CreditNoteService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req CancelRequest) (*CreditNoteResultResponse, error) {
	return s.mutate(ctx, actor, id, "cancel", func(note *finance.CreditNote, inv *finance.Invoice) error {
		now := s.now()
		wasApplied, err := note.Cancel(req.Reason, now)
		if err != nil {
			return err
		}
		if !wasApplied {
			return nil
		}
		return inv.ReverseAmount(note.Amount, note.CreditNoteNumber, now)
	})
}

func applyNote(note *finance.CreditNote, inv *finance.Invoice, now time.Time) error {
	if err := note.Apply(now); err != nil {
		return err
	}
	if err := inv.ApplyAmount(note.Amount, note.CreditNoteNumber, now); err != nil {
		return err
	}
	return inv.CheckBalanceInvariant()
}

func (s *CreditNoteService) mutate(ctx context.Context, actor shared.Actor, id uuid.UUID, method string, fn func(note *finance.CreditNote, inv *finance.Invoice) error) (*CreditNoteResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "credit_note", method,
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrCreditNoteID, id.String(),
	)
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}

	var (
		invoice *finance.Invoice
		note    *finance.CreditNote
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		unlocked, err := repos.CreditNoteRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		// Invoice first, then the note: the same order Issue and payments use.
		invoice, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, unlocked.InvoiceID)
		if err != nil {
			return err
		}
		note, err = repos.CreditNoteRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := fn(note, invoice); err != nil {
			return err
		}
		if err := repos.CreditNoteRepo().SaveWithLock(ctx, note); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, note, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("credit note updated",
		zap.String("method", method),
		zap.String("credit_note_number", note.CreditNoteNumber),
		zap.String("status", string(note.Status)),
		zap.String("invoice_status", string(invoice.Status)),
	)
	return &CreditNoteResultResponse{
		CreditNote: ToCreditNoteResponse(note),
		Invoice:    ToInvoiceResponse(invoice),
	}, nil
}

// GetByID returns a credit note
func (s *CreditNoteService) GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*CreditNoteResponse, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, err
	}
	var note *finance.CreditNote
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		note, err = repos.CreditNoteRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToCreditNoteResponse(note)
	return &resp, nil
}

// List returns a page of credit notes
func (s *CreditNoteService) List(ctx context.Context, actor shared.Actor, filter CreditNoteListFilter) ([]CreditNoteResponse, int64, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.CreditNoteFilter{
		Filter:     filter.toShared(),
		InvoiceID:  filter.InvoiceID,
		CustomerID: filter.CustomerID,
	}
	if filter.Status != "" {
		status := finance.CreditNoteStatus(filter.Status)
		f.Status = &status
	}

	var (
		notes []finance.CreditNote
		total int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if notes, err = repos.CreditNoteRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.CreditNoteRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToCreditNoteResponses(notes), total, nil
}
