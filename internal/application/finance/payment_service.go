package finance

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService records and cancels payments against invoices
type PaymentService struct {
	base
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(deps Dependencies) *PaymentService {
	return &PaymentService{base: newBase(deps)}
}

// Record registers a completed payment and applies it to the invoice balance.
// The invoice row is locked for the duration of the transaction so that
// concurrent payments on the same invoice are validated one after the other.
func (s *PaymentService) Record(ctx context.Context, actor shared.Actor, req RecordPaymentRequest) (*PaymentResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record",
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
		payment *finance.Payment
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, req.InvoiceID)
		if err != nil {
			return err
		}
		if err := invoice.CheckPayable(req.Amount); err != nil {
			return err
		}
		now := s.now()
		number, err := nextNumber(ctx, repos, actor.TenantID, finance.DocumentTypePayment, now.Year())
		if err != nil {
			return err
		}
		payment, err = finance.NewPayment(invoice, finance.NewPaymentParams{
			PaymentNumber: number,
			Amount:        req.Amount,
			Method:        finance.PaymentMethod(req.Method),
			Reference:     req.Reference,
			PaymentDate:   req.PaymentDate,
			Notes:         req.Notes,
			CreatedBy:     actor.UserID,
			Now:           now,
		})
		if err != nil {
			return err
		}
		if err := invoice.ApplyAmount(payment.Amount, payment.PaymentNumber, now); err != nil {
			return err
		}
		if err := invoice.CheckBalanceInvariant(); err != nil {
			return err
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, payment, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrDocNumber, payment.PaymentNumber,
		telemetry.SpanAttrStatus, string(invoice.Status),
	)
	telemetry.AddEvent(span, "invoice_balance_changed",
		"amount_paid", invoice.AmountPaid.String(),
		"amount_due", invoice.AmountDue.String(),
	)
	s.logger.Info("payment recorded",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("amount", payment.Amount.String()),
		zap.String("amount_due", invoice.AmountDue.String()),
		zap.String("invoice_status", string(invoice.Status)),
	)
	return &PaymentResultResponse{
		Payment: ToPaymentResponse(payment),
		Invoice: ToInvoiceResponse(invoice),
	}, nil
}

// Cancel refunds a completed payment and reverses its effect on the invoice
func (s *PaymentService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req CancelRequest) (*PaymentResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "cancel",
		telemetry.SpanAttrTenantID, actor.TenantID.String(),
		telemetry.SpanAttrPaymentID, id.String(),
	)
	defer span.End()

	if err := actor.Authorize(shared.RoleManager); err != nil {
		return nil, err
	}

	var (
		invoice *finance.Invoice
		payment *finance.Payment
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		unlocked, err := repos.PaymentRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		invoice, err = repos.InvoiceRepo().FindByIDForUpdate(ctx, actor.TenantID, unlocked.InvoiceID)
		if err != nil {
			return err
		}
		payment, err = repos.PaymentRepo().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		linked, err := repos.BankTransactionRepo().IsPaymentLinked(ctx, actor.TenantID, payment.ID)
		if err != nil {
			return err
		}
		if linked {
			return shared.NewStateConflictError(finance.CodePaymentReconciled, "payment is reconciled with a bank transaction and cannot be cancelled").
				WithDetail("paymentNumber", payment.PaymentNumber)
		}
		now := s.now()
		if err := payment.Refund(req.Reason, now); err != nil {
			return err
		}
		if err := invoice.ReverseAmount(payment.Amount, payment.PaymentNumber, now); err != nil {
			return err
		}
		if err := invoice.CheckBalanceInvariant(); err != nil {
			return err
		}
		if err := repos.PaymentRepo().SaveWithLock(ctx, payment); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}
		return recordAudit(ctx, repos, actor, payment, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("payment cancelled",
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("invoice_status", string(invoice.Status)),
	)
	return &PaymentResultResponse{
		Payment: ToPaymentResponse(payment),
		Invoice: ToInvoiceResponse(invoice),
	}, nil
}

// GetByID returns a payment
func (s *PaymentService) GetByID(ctx context.Context, actor shared.Actor, id uuid.UUID) (*PaymentResponse, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, err
	}
	var payment *finance.Payment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		payment, err = repos.PaymentRepo().FindByIDForTenant(ctx, actor.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToPaymentResponse(payment)
	return &resp, nil
}

// List returns a page of payments
func (s *PaymentService) List(ctx context.Context, actor shared.Actor, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	if err := actor.Authorize(readRoles...); err != nil {
		return nil, 0, err
	}
	f := finance.PaymentFilter{
		Filter:     filter.toShared(),
		InvoiceID:  filter.InvoiceID,
		CustomerID: filter.CustomerID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	if filter.Status != "" {
		status := finance.PaymentStatus(filter.Status)
		f.Status = &status
	}
	if filter.Method != "" {
		method := finance.PaymentMethod(filter.Method)
		f.Method = &method
	}

	var (
		payments []finance.Payment
		total    int64
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		if payments, err = repos.PaymentRepo().FindAllForTenant(ctx, actor.TenantID, f); err != nil {
			return err
		}
		total, err = repos.PaymentRepo().CountForTenant(ctx, actor.TenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return ToPaymentResponses(payments), total, nil
}
