package auth

import (
	"errors"
	"time"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrInvalidRole      = errors.New("unknown role in claims")
	ErrMissingSecret    = errors.New("jwt secret is not configured")
)

// Claims are the claims of an actor token
type Claims struct {
	jwt.RegisteredClaims
	TenantID string      `json:"tenant_id"`
	UserID   string      `json:"user_id"`
	Role     shared.Role `json:"role"`
}

// Actor converts validated claims into the actor they describe
func (c *Claims) Actor() (shared.Actor, error) {
	if c.TenantID == "" {
		return shared.Actor{}, ErrMissingTenantID
	}
	if c.UserID == "" {
		return shared.Actor{}, ErrMissingUserID
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	if !c.Role.IsValid() {
		return shared.Actor{}, ErrInvalidRole
	}
	return shared.Actor{UserID: userID, TenantID: tenantID, Role: c.Role}, nil
}

// JWTService signs and validates actor tokens (HS256)
type JWTService struct {
	secret     []byte
	expiration time.Duration
	issuer     string
	now        func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:     []byte(cfg.Secret),
		expiration: cfg.AccessTokenExpiration,
		issuer:     cfg.Issuer,
		now:        time.Now,
	}
}

// Issue signs a token for actor and returns it with its expiry
func (s *JWTService) Issue(actor shared.Actor) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	if actor.UserID == uuid.Nil || actor.TenantID == uuid.Nil {
		return "", time.Time{}, ErrInvalidClaims
	}
	if !actor.Role.IsValid() {
		return "", time.Time{}, ErrInvalidRole
	}

	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   actor.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		TenantID: actor.TenantID.String(),
		UserID:   actor.UserID.String(),
		Role:     actor.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate checks the signature, issuer, audience and lifetime of tokenString
// and returns the actor it was issued for
func (s *JWTService) Validate(tokenString string) (shared.Actor, error) {
	if len(s.secret) == 0 {
		return shared.Actor{}, ErrMissingSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return shared.Actor{}, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return shared.Actor{}, ErrTokenNotYetValid
		}
		return shared.Actor{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Actor{}, ErrInvalidClaims
	}
	return claims.Actor()
}

// Expiration returns the lifetime of issued tokens
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
