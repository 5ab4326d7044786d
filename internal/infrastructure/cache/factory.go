package cache

import (
	"context"
	"fmt"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory connects to Redis when it is enabled and hands out the lockers built on it
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// process-local locking instead of failing startup. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Connect returns a live client, or nil when Redis is disabled or unreachable
// and the in-memory fallback is allowed
func (f *Factory) Connect(ctx context.Context) (*redis.Client, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled")
		return nil, nil
	}
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("connected to redis", zap.String("addr", f.redisConfig.Addr()))
		return client, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("redis unavailable, falling back to in-process locking. "+
		"Concurrent reconciliations from other instances will not be excluded.",
		zap.Error(err),
	)
	return nil, nil
}

// Locker returns a Redis locker over client, or an in-memory one when client is nil
func (f *Factory) Locker(client *redis.Client) appfinance.Locker {
	if client == nil {
		return NewInMemoryLocker()
	}
	return NewRedisLocker(client, "")
}
