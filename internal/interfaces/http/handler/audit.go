package handler

import (
	"net/http"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuditHandler exposes the audit trail and the integrity verifier
type AuditHandler struct {
	BaseHandler
	audit     *appfinance.AuditService
	integrity *appfinance.IntegrityService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *appfinance.AuditService, integrity *appfinance.IntegrityService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{BaseHandler: newBase(log), audit: audit, integrity: integrity}
}

// List handles GET /audit
func (h *AuditHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var filter appfinance.AuditListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	entries, total, err := h.audit.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, entries, total, page, pageSize)
}

// Verify handles POST /integrity/verify. A report with violations is still a
// successful run; callers read "ok" to tell the difference.
func (h *AuditHandler) Verify(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	report, err := h.integrity.Verify(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !report.OK() {
		h.logger.Warn("integrity violations found",
			zap.String("tenant_id", report.TenantID.String()),
			zap.Int("violations", len(report.Violations)),
		)
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"ok":     report.OK(),
		"report": report,
	}))
}
