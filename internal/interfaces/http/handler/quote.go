package handler

import (
	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QuoteHandler handles quote endpoints
type QuoteHandler struct {
	BaseHandler
	quotes *appfinance.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes *appfinance.QuoteService, log *zap.Logger) *QuoteHandler {
	return &QuoteHandler{BaseHandler: newBase(log), quotes: quotes}
}

// Create handles POST /quotes
func (h *QuoteHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appfinance.CreateQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quote)
}

// GetByID handles GET /quotes/:id
func (h *QuoteHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	quote, err := h.quotes.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// List handles GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter appfinance.QuoteListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	quotes, total, err := h.quotes.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, quotes, total, page, pageSize)
}

// UpdateItems handles PUT /quotes/:id/items
func (h *QuoteHandler) UpdateItems(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.UpdateQuoteItemsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.UpdateItems(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Send handles POST /quotes/:id/send
func (h *QuoteHandler) Send(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	quote, err := h.quotes.Send(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Accept handles POST /quotes/:id/accept
func (h *QuoteHandler) Accept(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	quote, err := h.quotes.Accept(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// Reject handles POST /quotes/:id/reject
func (h *QuoteHandler) Reject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.RejectQuoteRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	quote, err := h.quotes.Reject(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}
