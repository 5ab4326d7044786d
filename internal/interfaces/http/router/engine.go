package router

import (
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/interfaces/http/handler"
	"github.com/dealerdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Quotes         *handler.QuoteHandler
	Invoices       *handler.InvoiceHandler
	Payments       *handler.PaymentHandler
	CreditNotes    *handler.CreditNoteHandler
	Reconciliation *handler.ReconciliationHandler
	Audit          *handler.AuditHandler
	Health         *handler.HealthHandler
}

// NewHandlers builds every handler over the finance services
func NewHandlers(services *appfinance.Services, health *handler.HealthHandler, log *zap.Logger) Handlers {
	return Handlers{
		Quotes:         handler.NewQuoteHandler(services.Quotes, log),
		Invoices:       handler.NewInvoiceHandler(services.Invoices, log),
		Payments:       handler.NewPaymentHandler(services.Payments, log),
		CreditNotes:    handler.NewCreditNoteHandler(services.CreditNotes, log),
		Reconciliation: handler.NewReconciliationHandler(services.Reconciliation, log),
		Audit:          handler.NewAuditHandler(services.Audit, services.Integrity, log),
		Health:         health,
	}
}

// EngineConfig carries what NewEngine needs besides the handlers
type EngineConfig struct {
	Config *config.Config
	Logger *zap.Logger
	Tokens middleware.TokenValidator
}

// NewEngine assembles the gin engine: global middleware, /health and the
// authenticated /api/v1 resource groups
func NewEngine(ec EngineConfig, h Handlers) (*gin.Engine, error) {
	cfg := ec.Config
	log := ec.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := middleware.SetupValidator(); err != nil {
		return nil, err
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	global := []gin.HandlerFunc{
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	}
	if cfg.HTTP.MaxBodySize > 0 {
		global = append(global, middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	engine.Use(global...)

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine,
		WithAPIVersion("v1"),
		WithMiddleware(
			middleware.ResolveActor(middleware.ActorConfig{
				Tokens:     ec.Tokens,
				DevHeaders: cfg.HTTP.DevActorHeaders && !cfg.App.IsProduction(),
				Logger:     log,
			}),
			middleware.SpanEnricher(),
		),
	)
	r.Register(financeGroups(h)...)
	r.Setup()

	log.Info("http routes registered", zap.Int("routes", len(engine.Routes())))
	return engine, nil
}

func financeGroups(h Handlers) []RouteRegistrar {
	quotes := NewDomainGroup("quotes", "/quotes").
		POST("", h.Quotes.Create).
		GET("", h.Quotes.List).
		GET("/:id", h.Quotes.GetByID).
		PUT("/:id/items", h.Quotes.UpdateItems).
		POST("/:id/send", h.Quotes.Send).
		POST("/:id/accept", h.Quotes.Accept).
		POST("/:id/reject", h.Quotes.Reject).
		POST("/:id/convert", h.Invoices.ConvertQuote)

	invoices := NewDomainGroup("invoices", "/invoices").
		POST("", h.Invoices.Create).
		GET("", h.Invoices.List).
		POST("/overdue/refresh", h.Invoices.RefreshOverdue).
		GET("/:id", h.Invoices.GetByID).
		PATCH("/:id", h.Invoices.Update).
		POST("/:id/issue", h.Invoices.Issue).
		POST("/:id/send", h.Invoices.Send).
		POST("/:id/transition", h.Invoices.Transition).
		POST("/:id/cancel", h.Invoices.Cancel)

	payments := NewDomainGroup("payments", "/payments").
		POST("", h.Payments.Record).
		GET("", h.Payments.List).
		GET("/:id", h.Payments.GetByID).
		POST("/:id/cancel", h.Payments.Cancel)

	creditNotes := NewDomainGroup("credit-notes", "/credit-notes").
		POST("", h.CreditNotes.Issue).
		GET("", h.CreditNotes.List).
		GET("/:id", h.CreditNotes.GetByID).
		POST("/:id/apply", h.CreditNotes.Apply).
		POST("/:id/cancel", h.CreditNotes.Cancel)

	bank := NewDomainGroup("bank-accounts", "/bank-accounts").
		POST("", h.Reconciliation.CreateAccount).
		GET("", h.Reconciliation.ListAccounts).
		POST("/:id/transactions", h.Reconciliation.ImportTransactions).
		POST("/:id/statements", h.Reconciliation.ImportStatement).
		GET("/:id/transactions", h.Reconciliation.ListTransactions)
	bank.Group("reconcile", "/:id/reconcile").
		POST("/auto", h.Reconciliation.AutoReconcile).
		POST("/manual", h.Reconciliation.ManualReconcile)

	audit := NewDomainGroup("audit", "/audit").
		GET("", h.Audit.List)

	integrity := NewDomainGroup("integrity", "/integrity").
		POST("/verify", h.Audit.Verify)

	return []RouteRegistrar{quotes, invoices, payments, creditNotes, bank, audit, integrity}
}
