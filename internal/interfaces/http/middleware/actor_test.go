package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/auth"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newActorRouter(cfg ActorConfig) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ResolveActor(cfg))
	r.GET("/whoami", func(c *gin.Context) {
		actor, ok := GetActor(c)
		ctxActor, _ := logger.GetActor(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"ok":        ok,
			"user_id":   actor.UserID,
			"tenant_id": actor.TenantID,
			"role":      actor.Role,
			"ctx_match": ctxActor == actor,
		})
	})
	r.GET("/health", func(c *gin.Context) {
		_, ok := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"has_actor": ok})
	})
	return r
}

func newTestTokens() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-32-chars!",
		AccessTokenExpiration: time.Hour,
		Issuer:                "dealerdesk",
	})
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestResolveActor_BearerToken(t *testing.T) {
	tokens := newTestTokens()
	actor := shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: shared.RoleAccountant}
	token, _, err := tokens.Issue(actor)
	require.NoError(t, err)

	r := newActorRouter(ActorConfig{Tokens: tokens})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, actor.UserID.String(), body["user_id"])
	assert.Equal(t, actor.TenantID.String(), body["tenant_id"])
	assert.Equal(t, "ACCOUNTANT", body["role"])
	assert.Equal(t, true, body["ctx_match"])
}

func TestResolveActor_Rejections(t *testing.T) {
	tokens := newTestTokens()

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "no credentials", wantCode: dto.ErrCodeUnauthorized},
		{name: "not a bearer", header: "Basic dXNlcjpwYXNz", wantCode: dto.ErrCodeUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", wantCode: dto.ErrCodeUnauthorized},
	}

	r := newActorRouter(ActorConfig{Tokens: tokens})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, false, body["success"])
			errInfo := body["error"].(map[string]any)
			assert.Equal(t, tt.wantCode, errInfo["code"])
			assert.NotEmpty(t, errInfo["request_id"])
		})
	}
}

func TestResolveActor_DevHeaders(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()

	t.Run("accepted when enabled", func(t *testing.T) {
		r := newActorRouter(ActorConfig{DevHeaders: true})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderUserID, userID.String())
		req.Header.Set(HeaderTenantID, tenantID.String())
		req.Header.Set(HeaderUserRole, "sales")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "SALES", body["role"])
		assert.Equal(t, tenantID.String(), body["tenant_id"])
	})

	t.Run("ignored when disabled", func(t *testing.T) {
		r := newActorRouter(ActorConfig{})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderUserID, userID.String())
		req.Header.Set(HeaderTenantID, tenantID.String())
		req.Header.Set(HeaderUserRole, "ADMIN")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		r := newActorRouter(ActorConfig{DevHeaders: true})
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(HeaderUserID, userID.String())
		req.Header.Set(HeaderTenantID, tenantID.String())
		req.Header.Set(HeaderUserRole, "OWNER")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid identity headers")
	})
}

func TestResolveActor_ExpiredTokenLogged(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                "middleware-test-secret-32-chars!",
		AccessTokenExpiration: -time.Minute,
		Issuer:                "dealerdesk",
	})
	token, _, err := expired.Issue(shared.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: shared.RoleViewer})
	require.NoError(t, err)

	r := newActorRouter(ActorConfig{Tokens: newTestTokens(), Logger: zap.New(core)})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeTokenExpired)
	assert.Equal(t, 1, recorded.FilterMessage("authentication failed").Len())
}

func TestResolveActor_SkipPaths(t *testing.T) {
	r := newActorRouter(ActorConfig{SkipPaths: []string{"/health"}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["has_actor"])
}
