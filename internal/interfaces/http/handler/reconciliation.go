package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/statement"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReconciliationHandler handles bank accounts, statement imports and reconciliation
type ReconciliationHandler struct {
	BaseHandler
	recon *appfinance.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(recon *appfinance.ReconciliationService, log *zap.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{BaseHandler: newBase(log), recon: recon}
}

// CreateAccount handles POST /bank-accounts
func (h *ReconciliationHandler) CreateAccount(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appfinance.CreateBankAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	account, err := h.recon.CreateBankAccount(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// ListAccounts handles GET /bank-accounts
func (h *ReconciliationHandler) ListAccounts(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	accounts, err := h.recon.ListBankAccounts(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// ImportTransactions handles POST /bank-accounts/:id/transactions
func (h *ReconciliationHandler) ImportTransactions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.ImportTransactionsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	txs, err := h.recon.ImportTransactions(c.Request.Context(), actor, accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, txs)
}

// StatementQuery tunes how an uploaded statement file is read
type StatementQuery struct {
	DecimalComma bool   `form:"decimal_comma"`
	Delimiter    string `form:"delimiter" binding:"omitempty,len=1"`
}

// ImportStatement handles POST /bank-accounts/:id/statements. The file comes
// either as the multipart field "file" or as the raw request body.
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var q StatementQuery
	if !h.bindQuery(c, &q) {
		return
	}

	src, closeSrc, err := statementSource(c)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.bindError(c, err)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeStatement, "Multipart field 'file' is required")
		return
	}
	defer closeSrc()

	var opts []statement.Option
	if q.DecimalComma {
		opts = append(opts, statement.WithDecimalComma())
	}
	if q.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(q.Delimiter)
		opts = append(opts, statement.WithFieldDelimiter(d))
	}

	parsed, err := statement.Parse(src, opts...)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.bindError(c, err)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeStatement, err.Error())
		return
	}
	if !parsed.Valid() {
		details := make([]dto.ValidationDetail, 0, len(parsed.Errors))
		for _, rowErr := range parsed.Errors {
			details = append(details, dto.ValidationDetail{
				Field:   strings.TrimSpace(fmt.Sprintf("row %d %s", rowErr.Row, rowErr.Column)),
				Message: rowErr.Message,
			})
		}
		h.ValidationError(c, details)
		return
	}

	txs, err := h.recon.ImportTransactions(c.Request.Context(), actor, accountID, parsed.Request())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, txs)
}

func statementSource(c *gin.Context) (io.Reader, func(), error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return c.Request.Body, func() {}, nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// ListTransactions handles GET /bank-accounts/:id/transactions
func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var filter appfinance.BankTransactionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	filter.BankAccountID = &accountID

	txs, total, err := h.recon.ListTransactions(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, pageSize := filter.Paging()
	h.SuccessWithMeta(c, txs, total, page, pageSize)
}

// AutoReconcile handles POST /bank-accounts/:id/reconcile/auto
func (h *ReconciliationHandler) AutoReconcile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.recon.AutoReconcile(c.Request.Context(), actor, accountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// ManualReconcile handles POST /bank-accounts/:id/reconcile/manual
func (h *ReconciliationHandler) ManualReconcile(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	accountID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfinance.ManualReconcileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report, err := h.recon.ManualReconcile(c.Request.Context(), actor, accountID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
