package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/auth"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// ActorKey is the gin context key of the resolved actor
	ActorKey = "actor"

	authHeader   = "Authorization"
	bearerPrefix = "Bearer "

	// development-only identity headers
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderTenantID = "X-Tenant-ID"
)

// TokenValidator turns a bearer token into the actor it was issued for
type TokenValidator interface {
	Validate(token string) (shared.Actor, error)
}

// ActorConfig configures actor resolution
type ActorConfig struct {
	Tokens TokenValidator
	// DevHeaders accepts X-User-ID / X-User-Role / X-Tenant-ID when no token is sent
	DevHeaders bool
	// SkipPaths are served without an actor
	SkipPaths []string
	Logger    *zap.Logger
}

// ResolveActor authenticates the caller and stores the actor in the gin and
// request contexts. Requests without a usable identity get 401.
func ResolveActor(cfg ActorConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		actor, err := resolve(c, cfg)
		if err != nil {
			logger.For(c.Request.Context(), log).Warn("authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			code, message := dto.ErrCodeUnauthorized, "Authentication required"
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				code, message = dto.ErrCodeTokenExpired, "Token has expired"
			case errors.Is(err, errBadDevHeaders):
				message = "Invalid identity headers"
			case !errors.Is(err, errNoCredentials):
				message = "Invalid token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c), nil))
			return
		}

		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

var (
	errNoCredentials = errors.New("no credentials")
	errBadDevHeaders = errors.New("malformed identity headers")
)

func resolve(c *gin.Context, cfg ActorConfig) (shared.Actor, error) {
	if header := c.GetHeader(authHeader); header != "" {
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" || cfg.Tokens == nil {
			return shared.Actor{}, auth.ErrInvalidToken
		}
		return cfg.Tokens.Validate(token)
	}

	if cfg.DevHeaders && c.GetHeader(HeaderUserID) != "" {
		return actorFromHeaders(c)
	}
	return shared.Actor{}, errNoCredentials
}

func actorFromHeaders(c *gin.Context) (shared.Actor, error) {
	userID, err := uuid.Parse(c.GetHeader(HeaderUserID))
	if err != nil {
		return shared.Actor{}, errBadDevHeaders
	}
	tenantID, err := uuid.Parse(c.GetHeader(HeaderTenantID))
	if err != nil {
		return shared.Actor{}, errBadDevHeaders
	}
	role := shared.Role(strings.ToUpper(c.GetHeader(HeaderUserRole)))
	if !role.IsValid() {
		return shared.Actor{}, errBadDevHeaders
	}
	return shared.Actor{UserID: userID, TenantID: tenantID, Role: role}, nil
}

// GetActor returns the actor resolved for the request
func GetActor(c *gin.Context) (shared.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return shared.Actor{}, false
	}
	actor, ok := v.(shared.Actor)
	return actor, ok
}
