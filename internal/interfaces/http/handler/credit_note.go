package handler

import (
	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreditNoteHandler handles credit note endpoints
type CreditNoteHandler struct {
	BaseHandler
	notes *appfinance.CreditNoteService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(notes *appfinance.CreditNoteService, log *zap.Logger) *CreditNoteHandler {
	return &CreditNoteHandler{BaseHandler: newBase(log), notes: notes}
}

// Issue handles POST /credit-notes
func (h *CreditNoteHandler) Issue(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appfinance.IssueCreditNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.notes.Issue(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Apply handles POST /credit-notes/:id/apply
func (h *CreditNoteHandler) Apply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.notes.Apply(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel handles POST /credit-notes/:id/cancel
func (h *CreditNoteHandler) Cancel(c *gin.Context) {
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

	result, err := h.notes.Cancel(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetByID handles GET /credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	note, err := h.notes.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, note)
}

// List handles GET /credit-notes
func (h *CreditNoteHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter appfinance.CreditNoteListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	notes, total, err := h.notes.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, notes, total, page, pageSize)
}
