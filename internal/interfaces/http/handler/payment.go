package handler

import (
	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler handles the payment ledger endpoints
type PaymentHandler struct {
	BaseHandler
	payments *appfinance.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments *appfinance.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{BaseHandler: newBase(log), payments: payments}
}

// Record handles POST /payments
func (h *PaymentHandler) Record(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appfinance.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.payments.Record(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Cancel handles POST /payments/:id/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.CancelRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.payments.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetByID handles GET /payments/:id
func (h *PaymentHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// List handles GET /payments
func (h *PaymentHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter appfinance.PaymentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	payments, total, err := h.payments.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, payments, total, page, pageSize)
}
