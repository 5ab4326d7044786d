package handler

import (
	"context"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceHandler handles invoice endpoints, including quote conversion
type InvoiceHandler struct {
	BaseHandler
	invoices *appfinance.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *appfinance.InvoiceService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{BaseHandler: newBase(log), invoices: invoices}
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appfinance.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// ConvertQuote handles POST /quotes/:id/convert
func (h *InvoiceHandler) ConvertQuote(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	quoteID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.ConvertQuoteRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.invoices.ConvertFromQuote(c.Request.Context(), actor, quoteID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter appfinance.InvoiceListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	invoices, total, err := h.invoices.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, invoices, total, page, pageSize)
}

// Update handles PATCH /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.UpdateDetails(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Issue handles POST /invoices/:id/issue
func (h *InvoiceHandler) Issue(c *gin.Context) {
	h.simpleTransition(c, h.invoices.Issue)
}

// Send handles POST /invoices/:id/send
func (h *InvoiceHandler) Send(c *gin.Context) {
	h.simpleTransition(c, h.invoices.Send)
}

// Transition handles POST /invoices/:id/transition
func (h *InvoiceHandler) Transition(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.TransitionInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.Transition(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
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

	invoice, err := h.invoices.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// RefreshOverdue handles POST /invoices/overdue/refresh
func (h *InvoiceHandler) RefreshOverdue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	result, err := h.invoices.RefreshOverdue(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

type invoiceAction func(ctx context.Context, actor shared.Actor, id uuid.UUID) (*appfinance.InvoiceResponse, error)

func (h *InvoiceHandler) simpleTransition(c *gin.Context, action invoiceAction) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	invoice, err := action(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
