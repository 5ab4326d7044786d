package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(recorder *tracetest.SpanRecorder, actor *shared.Actor) *gin.Engine {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	r := gin.New()
	r.Use(RequestID(), Tracing("dealerdesk-test", true, otelgin.WithTracerProvider(tp)))
	if actor != nil {
		r.Use(func(c *gin.Context) {
			c.Set(ActorKey, *actor)
			c.Next()
		})
	}
	r.Use(SpanEnricher())
	r.GET("/invoices/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]string {
	m := make(map[attribute.Key]string, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value.Emit()
	}
	return m
}

func TestTracing_EnrichesSpanWithActor(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	actor := shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: shared.RoleManager}
	r := newTracedRouter(recorder, &actor)

	req := httptest.NewRequest(http.MethodGet, "/invoices/42", nil)
	req.Header.Set(RequestIDHeader, "trace-req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Contains(t, span.Name(), "/invoices/:id")

	attrs := attrMap(span.Attributes())
	assert.Equal(t, "trace-req-1", attrs["request_id"])
	assert.Equal(t, actor.TenantID.String(), attrs["tenant_id"])
	assert.Equal(t, actor.UserID.String(), attrs["user_id"])
	assert.Equal(t, "MANAGER", attrs["actor_role"])
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracing_MarksClientErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	r := newTracedRouter(recorder, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	_, hasTenant := attrMap(spans[0].Attributes())["tenant_id"]
	assert.False(t, hasTenant)
}

func TestTracing_Disabled(t *testing.T) {
	r := gin.New()
	r.Use(Tracing("dealerdesk-test", false), SpanEnricher())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
