package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func reply(body string) gin.HandlerFunc {
	return func(c *gin.Context) { c.String(http.StatusOK, body) }
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	quotes := NewDomainGroup("quotes", "/quotes").GET("/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "quote "+c.Param("id"))
	})
	payments := NewDomainGroup("payments", "/payments").POST("", reply("recorded"))

	api := NewRouter(engine).Register(quotes).Register(payments).Setup()
	assert.Equal(t, "/api/v1", api.BasePath())

	w := serve(engine, http.MethodGet, "/api/v1/quotes/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "quote 42", w.Body.String())

	w = serve(engine, http.MethodPost, "/api/v1/payments")
	assert.Equal(t, "recorded", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/quotes/42").Code)
}

func TestRouterMiddlewareScope(t *testing.T) {
	engine := gin.New()
	engine.GET("/health", reply("ok"))

	tag := func(c *gin.Context) {
		c.Header("X-Api", "yes")
		c.Next()
	}
	NewRouter(engine, WithMiddleware(tag)).
		Register(NewDomainGroup("audit", "/audit").GET("", reply("entries"))).
		Setup()

	assert.Equal(t, "yes", serve(engine, http.MethodGet, "/api/v1/audit").Header().Get("X-Api"))
	assert.Empty(t, serve(engine, http.MethodGet, "/health").Header().Get("X-Api"))
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("credit-notes", "/credit-notes")
		assert.Equal(t, "credit-notes", g.Name())
		assert.Equal(t, "/credit-notes", g.Prefix())
	})

	t.Run("every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("invoices", "/invoices").
			GET("", reply("list")).
			POST("", reply("create")).
			PUT("/:id", reply("put")).
			PATCH("/:id", reply("patch")).
			DELETE("/:id", reply("delete"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		tests := []struct {
			method, path, want string
		}{
			{http.MethodGet, "/api/v1/invoices", "list"},
			{http.MethodPost, "/api/v1/invoices", "create"},
			{http.MethodPut, "/api/v1/invoices/7", "put"},
			{http.MethodPatch, "/api/v1/invoices/7", "patch"},
			{http.MethodDelete, "/api/v1/invoices/7", "delete"},
		}
		for _, tt := range tests {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.path)
			assert.Equal(t, tt.want, w.Body.String())
		}
	})

	t.Run("group middleware", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("payments", "/payments").
			Use(func(c *gin.Context) {
				c.Header("X-Group", "payments")
				c.Next()
			}).
			GET("", reply("ok"))
		g.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "payments", serve(engine, http.MethodGet, "/api/v1/payments").Header().Get("X-Group"))
	})

	t.Run("subgroups with path parameters", func(t *testing.T) {
		engine := gin.New()
		bank := NewDomainGroup("bank-accounts", "/bank-accounts").
			GET("/:id/transactions", reply("transactions"))
		bank.Group("reconcile", "/:id/reconcile").
			POST("/auto", func(c *gin.Context) { c.String(http.StatusOK, "auto "+c.Param("id")) })
		bank.RegisterRoutes(engine.Group("/api/v1"))

		assert.Equal(t, "transactions", serve(engine, http.MethodGet, "/api/v1/bank-accounts/9/transactions").Body.String())
		assert.Equal(t, "auto 9", serve(engine, http.MethodPost, "/api/v1/bank-accounts/9/reconcile/auto").Body.String())
	})
}
