package finance

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/domain/shared/valueobject"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteService handles quote use cases
type QuoteService struct {
	base
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(deps Dependencies) *QuoteService {
	return &QuoteService{base: newBase(deps)}
}

// Create creates a DRAFT quote with a freshly allocated COT number
func (s *QuoteService) Create(ctx context.Context, actor shared.Actor, req CreateQuoteRequest) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "create",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrActorRole, string(actor.Role),
	)
	defer span.End()

	if err := actor.Authorize(salesRoles...); err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}

	var quote *finance.Quote
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requireParties(ctx, repos, actor.TenantID, req.CustomerID, req.TeamID); err != nil {
			return err
		}
		now := s.now()
		number, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypeQuote, now.Year())
		if err != nil {
			return err
		}
		validity := req.ValidityDays
		if validity == 0 {
			validity = s.cfg.QuoteValidityDays
		}
		quote, err = finance.NewQuote(s.calc, finance.NewQuoteParams{
			TenantID:       actor.TenantID,
			CreatedBy:      actor.UserID,
			QuoteNumber:    number,
			CustomerID:     req.CustomerID,
			TeamID:         req.TeamID,
			VehicleID:      req.VehicleID,
			Items:          toLineItemInputs(req.Items, s.cfg.DefaultVATRate),
			DiscountAmount: decimalOrZero(req.DiscountAmount),
			ValidityDays:   validity,
			Currency:       currency,
			Notes:          req.Notes,
			Now:            now,
		})
		if err != nil {
			return err
		}
		if err := repos.QuoteRepo().Save(ctx, quote); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, quote)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrQuoteID, quote.ID.String(),
		telemetry.SpanAttrDocNumber, quote.QuoteNumber,
		telemetry.SpanAttrAmount, quote.Total.String(),
	)
	s.logger.Info("quote created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("quote_number", quote.QuoteNumber),
		zap.String("total", quote.Total.String()),
	)
	resp := ToQuoteResponse(quote)
	return &resp, nil
}

// GetByID loads a quote. Reading refreshes a lapsed quote to EXPIRED, and the first
// read of a SENT quote by someone other than its creator marks it VIEWED.
func (s *QuoteService) GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", "get", telemetry.SpanAttrQuoteID, id.String())
	defer span.End()

	if err := actor.Authorize(readRoles...); err != nil {
		return nil, err
	}

	var quote *finance.Quote
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quote, err = repos.QuoteRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		now := s.now()
		if !refreshOnRead(quote, actor.UserID, now) {
			return nil
		}
		// Decide again on the locked row so concurrent readers stamp it once.
		quote, err = repos.QuoteRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !refreshOnRead(quote, actor.UserID, now) {
			return nil
		}
		if err := repos.QuoteRepo().Save(ctx, quote); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, quote)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToQuoteResponse(quote)
	return &resp, nil
}

func refreshOnRead(quote *finance.Quote, readerID uuid.UUID, now time.Time) bool {
	changed := quote.RefreshExpiry(now)
	if quote.MarkViewed(readerID, now) {
		changed = true
	}
	return changed
}

// List returns a page of quotes. Lapsed quotes are reported as EXPIRED without being persisted.
func (s *QuoteService) List(ctx context.Context, actor shared.Actor, filter QuoteListFilter) ([]QuoteResponse, int64, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.QuoteFilter{
		Filter:     filter.toShared(),
		CustomerID: filter.CustomerID,
		TeamID:     filter.TeamID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	if filter.Status != "" {
		status := finance.QuoteStatus(filter.Status)
		f.Status = &status
	}

	var (
		quotes []finance.Quote
		total  int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if quotes, err = repos.QuoteRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.QuoteRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range quotes {
		if quotes[i].IsExpiredAt(now) {
			quotes[i].Status = finance.QuoteStatusExpired
		}
	}
	return ToQuoteResponses(quotes), total, nil
}

// UpdateItems replaces the item list of a DRAFT or SENT quote and recomputes its totals
func (s *QuoteService) UpdateItems(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateQuoteItemsRequest) (*QuoteResponse, error) {
	return s.mutate(ctx, actor, id, "update_items", func(q *finance.Quote) error {
		return q.ReplaceItems(s.calc, toLineItemInputs(req.Items, s.cfg.DefaultVATRate), decimalOrZero(req.DiscountAmount), s.now())
	})
}

// Send marks the quote as sent to the customer
func (s *QuoteService) Send(ctx context.Context, actor shared.Actor, id uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, actor, id, "send", func(q *finance.Quote) error {
		return q.Send(s.now())
	})
}

// Accept records the customer's acceptance
func (s *QuoteService) Accept(ctx context.Context, actor shared.Actor, id uuid.UUID) (*QuoteResponse, error) {
	return s.mutate(ctx, actor, id, "accept", func(q *finance.Quote) error {
		return q.Accept(s.now())
	})
}

// Reject records the customer's refusal
func (s *QuoteService) Reject(ctx context.Context, actor shared.Actor, id uuid.UUID, req RejectQuoteRequest) (*QuoteResponse, error) {
	return s.mutate(ctx, actor, id, "reject", func(q *finance.Quote) error {
		return q.Reject(req.Reason, s.now())
	})
}

// mutate loads the quote under a row lock, applies fn and persists the result with its audit trail
func (s *QuoteService) mutate(ctx context.Context, actor shared.Actor, id uuid.UUID, method string, fn func(q *finance.Quote) error) (*QuoteResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "quote", method,
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrQuoteID, id.String(),
	)
	defer span.End()

	if err := actor.Authorize(salesRoles...); err != nil {
		return nil, err
	}

	var quote *finance.Quote
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quote, err = repos.QuoteRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := fn(quote); err != nil {
			return err
		}
		if err := repos.QuoteRepo().Save(ctx, quote); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, quote)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if shared.IsKind(err, shared.KindInternal) {
			s.logger.Error("quote update failed", zap.String("method", method), zap.String("quote_id", id.String()), zap.Error(err))
		}
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(quote.Status))
	s.logger.Info("quote updated",
		zap.String("method", method),
		zap.String("quote_number", quote.QuoteNumber),
		zap.String("status", string(quote.Status)),
	)
	resp := ToQuoteResponse(quote)
	return &resp, nil
}

func (b base) currency(code string) (valueobject.Currency, error) {
	if code == "" {
		return b.cfg.DefaultCurrency, nil
	}
	c, err := valueobject.ParseCurrency(code)
	if err != nil {
		return "", shared.NewValidationError("INVALID_CURRENCY", err.Error())
	}
	return c, nil
}

// requireParties returns NOT_FOUND when the customer or team does not belong to the tenant
func requireParties(ctx context.Context, repos TransactionalRepositories, tenantID, customerID, teamID uuid.UUID) error {
	ok, err := repos.Parties().CustomerExists(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError("customer").WithDetail("customerId", customerID.String())
	}
	ok, err = repos.Parties().TeamExists(ctx, tenantID, teamID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewNotFoundError("team").WithDetail("teamId", teamID.String())
	}
	return nil
}
