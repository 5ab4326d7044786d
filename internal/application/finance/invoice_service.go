package finance

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const overdueRefreshLimit = 500

// InvoiceService handles invoice use cases, including quote conversion
type InvoiceService struct {
	base
	vehicles finance.VehicleStatusUpdater
}

// NewInvoiceService creates a new InvoiceService. vehicles may be nil.
func NewInvoiceService(deps Dependencies, vehicles finance.VehicleStatusUpdater) *InvoiceService {
	return &InvoiceService{base: newBase(deps), vehicles: vehicles}
}

// Create creates a manual DRAFT invoice
func (s *InvoiceService) Create(ctx context.Context, actor shared.Actor, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrActorRole, string(actor.Role),
	)
	defer span.End()

	if err := actor.Authorize(billingRoles...); err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}

	var invoice *finance.Invoice
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := requireParties(ctx, repos, actor.TenantID, req.CustomerID, req.TeamID); err != nil {
			return err
		}
		now := s.now()
		number, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypeInvoice, now.Year())
		if err != nil {
			return err
		}
		invoice, err = finance.NewInvoice(s.calc, finance.NewInvoiceParams{
			TenantID:       actor.TenantID,
			CreatedBy:      actor.UserID,
			InvoiceNumber:  number,
			CustomerID:     req.CustomerID,
			TeamID:         req.TeamID,
			VehicleID:      req.VehicleID,
			Items:          toLineItemInputs(req.Items, s.cfg.DefaultVATRate),
			DiscountAmount: decimalOrZero(req.DiscountAmount),
			Currency:       currency,
			DueDate:        req.DueDate,
			Notes:          req.Notes,
			Terms:          req.Terms,
			Now:            now,
		})
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrDocNumber, invoice.InvoiceNumber,
	)
	s.logger.Info("invoice created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.Total.String()),
	)
	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// ConvertFromQuote creates an UNPAID invoice from an accepted quote. An optional deposit is
// recorded as a completed payment in the same transaction. Once committed, the quoted vehicle
// is reported RESERVED or SOLD; that notification is best effort and never fails the call.
func (s *InvoiceService) ConvertFromQuote(ctx context.Context, actor shared.Actor, quoteID uuid.UUID, req ConvertQuoteRequest) (*ConversionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "convert_quote",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrQuoteID, quoteID.String(),
	)
	defer span.End()

	if err := actor.Authorize(billingRoles...); err != nil {
		return nil, err
	}
	deposit := decimalOrZero(req.DepositAmount)
	if deposit.IsNegative() {
		return nil, shared.NewValidationError(finance.CodeInvalidAmount, "deposit amount cannot be negative")
	}
	method := finance.PaymentMethodBankTransfer
	if req.DepositMethod != "" {
		method = finance.PaymentMethod(req.DepositMethod)
	}

	var (
		invoice *finance.Invoice
		payment *finance.Payment
		quote   *finance.Quote
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		quote, err = repos.QuoteRepo().FindByIDForUpdate(ctx, actor.TenantID, quoteID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := quote.CanConvert(now); err != nil {
			return err
		}
		number, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypeInvoice, now.Year())
		if err != nil {
			return err
		}
		invoice, err = finance.NewInvoiceFromQuote(quote, number, actor.UserID, req.DueDate, now)
		if err != nil {
			return err
		}
		if err := quote.MarkConverted(invoice.ID, now); err != nil {
			return err
		}

		if deposit.IsPositive() {
			if err := invoice.CheckPayable(deposit); err != nil {
				return err
			}
			paymentNumber, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypePayment, now.Year())
			if err != nil {
				return err
			}
			payment, err = finance.NewPayment(invoice, finance.NewPaymentParams{
				PaymentNumber: paymentNumber,
				Amount:        deposit,
				Method:        method,
				Reference:     req.DepositReference,
				CreatedBy:     actor.UserID,
				Now:           now,
			})
			if err != nil {
				return err
			}
			if err := invoice.ApplyAmount(deposit, payment.PaymentNumber, now); err != nil {
				return err
			}
		}

		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		if err := repos.QuoteRepo().Save(ctx, quote); err != nil {
			return err
		}
		if payment != nil {
			if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
				return err
			}
			return recordAudit(ctx, repos, actor, quote, invoice, payment)
		}
		return recordAudit(ctx, repos, actor, quote, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &ConversionResponse{Invoice: ToInvoiceResponse(invoice)}
	if payment != nil {
		p := ToPaymentResponse(payment)
		resp.Deposit = &p
	}
	if invoice.VehicleID != nil {
		status := finance.VehicleStatusForDeposit(deposit, invoice.Total)
		resp.VehicleStatus = string(status)
		s.notifyVehicle(ctx, actor.TenantID, *invoice.VehicleID, status)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrDocNumber, invoice.InvoiceNumber,
		telemetry.SpanAttrAmount, deposit.String(),
	)
	s.logger.Info("quote converted to invoice",
		zap.String("quote_number", quote.QuoteNumber),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("deposit", deposit.String()),
		zap.String("status", string(invoice.Status)),
	)
	return resp, nil
}

func (s *InvoiceService) notifyVehicle(ctx context.Context, tenantID, vehicleID uuid.UUID, status finance.VehicleStatus) {
	if s.vehicles == nil {
		return
	}
	if err := s.vehicles.UpdateStatus(ctx, tenantID, vehicleID, status); err != nil {
		s.logger.Warn("vehicle status update failed",
			zap.String("vehicle_id", vehicleID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// GetByID returns an invoice with its items
func (s *InvoiceService) GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, err
	}
	var invoice *finance.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}

// List returns a page of invoices
func (s *InvoiceService) List(ctx context.Context, actor shared.Actor, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.InvoiceFilter{
		Filter:        filter.toShared(),
		CustomerID:    filter.CustomerID,
		TeamID:        filter.TeamID,
		SourceQuoteID: filter.SourceQuoteID,
		DueFrom:       filter.DueFrom,
		DueTo:         filter.DueTo,
	}
	if filter.Status != "" {
		status := finance.InvoiceStatus(filter.Status)
		f.Status = &status
	}

	var (
		invoices []finance.Invoice
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if invoices, err = repos.InvoiceRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.InvoiceRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceResponses(invoices), total, nil
}

// Send issues a DRAFT invoice to the customer (DRAFT -> SENT)
func (s *InvoiceService) Send(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, actor, id, "send", billingRoles, func(inv *finance.Invoice) error {
		return inv.Send(s.now())
	})
}

// Issue finalizes a DRAFT invoice without sending it (DRAFT -> UNPAID)
func (s *InvoiceService) Issue(ctx context.Context, actor shared.Actor, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutate(ctx, actor, id, "issue", billingRoles, func(inv *finance.Invoice) error {
		return inv.TransitionTo(finance.InvoiceStatusUnpaid, s.now())
	})
}

// Transition performs an explicit status change checked against the transition table
func (s *InvoiceService) Transition(ctx context.Context, actor shared.Actor, id uuid.UUID, req TransitionInvoiceRequest) (*InvoiceResponse, error) {
	roles := billingRoles
	if finance.InvoiceStatus(req.Status) == finance.InvoiceStatusCancelled {
		roles = accountingRoles
	}
	return s.mutate(ctx, actor, id, "transition", roles, func(inv *finance.Invoice) error {
		return inv.TransitionTo(finance.InvoiceStatus(req.Status), s.now())
	})
}

// Cancel voids an invoice that has not received any money
func (s *InvoiceService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req CancelRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, actor, id, "cancel", accountingRoles, func(inv *finance.Invoice) error {
		return inv.Cancel(req.Reason, s.now())
	})
}

// UpdateDetails edits due date, notes and terms of an open invoice
func (s *InvoiceService) UpdateDetails(ctx context.Context, actor shared.Actor, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	return s.mutate(ctx, actor, id, "update_details", billingRoles, func(inv *finance.Invoice) error {
		return inv.UpdateDetails(finance.InvoiceDetailsUpdate{
			DueDate: req.DueDate,
			Notes:   req.Notes,
			Terms:   req.Terms,
		}, s.now())
	})
}

// RefreshOverdue flags every open invoice of the tenant whose due date has passed
func (s *InvoiceService) RefreshOverdue(ctx context.Context, actor shared.Actor) (*OverdueRefreshResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "refresh_overdue", telemetry.SpanAttrTenantID, actor.TenantID.String())
	defer span.End()

	if err := actor.Authorize(accountingRoles...); err != nil {
		return nil, err
	}

	resp := &OverdueRefreshResponse{InvoiceIDs: []uuid.UUID{}}
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		now := s.now()
		candidates, err := repos.InvoiceRepo().FindOverdueCandidates(ctx, actor.TenantID, now, overdueRefreshLimit)
		if err != nil {
			return err
		}
		for i := range candidates {
			inv, err := repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, candidates[i].ID)
			if err != nil {
				return err
			}
			if !inv.MarkOverdue(now) {
				continue
			}
			if err := repos.InvoiceRepo().Save(ctx, inv); err != nil {
				return err
			}
			if err := recordAudit(ctx, repos, actor, inv); err != nil {
				return err
			}
			resp.InvoiceIDs = append(resp.InvoiceIDs, inv.ID)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp.Updated = len(resp.InvoiceIDs)
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchSize, resp.Updated)
	if resp.Updated > 0 {
		s.logger.Info("invoices marked overdue", zap.Int("count", resp.Updated))
	}
	return resp, nil
}

func (s *InvoiceService) mutate(ctx context.Context, actor shared.Actor, id uuid.UUID, method string, roles []shared.Role, fn func(inv *finance.Invoice) error) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", method,
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrInvoiceID, id.String(),
	)
	defer span.End()

	if err := actor.Authorize(roles...); err != nil {
		return nil, err
	}

	var invoice *finance.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if err := fn(invoice); err != nil {
			return err
		}
		if err := invoice.CheckBalanceInvariant(); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(invoice.Status))
	s.logger.Info("invoice updated",
		zap.String("method", method),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("status", string(invoice.Status)),
	)
	resp := ToInvoiceResponse(invoice)
	return &resp, nil
}
