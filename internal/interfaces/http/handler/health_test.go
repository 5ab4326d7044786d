package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/dealerdesk/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

type healthBody struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
	Timestamp    string            `json:"timestamp"`
}

func serveHealth(t *testing.T, h *HealthHandler) (int, healthBody) {
	t.Helper()
	r := gin.New()
	r.GET("/health", h.Health)
	w := testutil.DoJSON(t, r, http.MethodGet, "/health", nil, nil)

	var body healthBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_AllDependenciesUp(t *testing.T) {
	db := testutil.NewMockDB(t)
	db.Mock.ExpectPing()

	code, body := serveHealth(t, NewHealthHandler("dealerdesk-finance", map[string]Pinger{
		"database": db.SqlDB,
		"redis":    pingFunc(func(context.Context) error { return nil }),
	}))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "dealerdesk-finance", body.Service)
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, body.Dependencies)
	assert.NotEmpty(t, body.Timestamp)
	db.ExpectationsWereMet(t)
}

func TestHealth_DatabaseDown(t *testing.T) {
	db := testutil.NewMockDB(t)
	db.Mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	code, body := serveHealth(t, NewHealthHandler("dealerdesk-finance", map[string]Pinger{"database": db.SqlDB}))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy: connection refused", body.Dependencies["database"])
	db.ExpectationsWereMet(t)
}

func TestHealth_NoDependencies(t *testing.T) {
	code, body := serveHealth(t, NewHealthHandler("dealerdesk-finance", nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body.Dependencies)
}
