// Package vehicle tells the inventory module when a financed vehicle is reserved or sold.
package vehicle

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerdesk/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamAdder is the part of the Redis client the publisher needs
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStatusPublisher appends vehicle status changes to a Redis stream consumed by inventory
type RedisStatusPublisher struct {
	client StreamAdder
	stream string
	maxLen int64
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStatusPublisher creates a publisher writing to stream. The stream is
// trimmed to roughly maxLen entries; zero keeps every entry.
func NewRedisStatusPublisher(client StreamAdder, stream string, maxLen int64, logger *zap.Logger) *RedisStatusPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStatusPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UpdateStatus implements finance.VehicleStatusUpdater
func (p *RedisStatusPublisher) UpdateStatus(ctx context.Context, tenantID, vehicleID uuid.UUID, status finance.VehicleStatus) error {
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"tenant_id":   tenantID.String(),
			"vehicle_id":  vehicleID.String(),
			"status":      string(status),
			"occurred_at": p.now().Format(time.RFC3339Nano),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish vehicle status to %s: %w", p.stream, err)
	}
	p.logger.Debug("vehicle status published",
		zap.String("stream", p.stream),
		zap.String("entry_id", id),
		zap.String("vehicle_id", vehicleID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

// LoggingStatusUpdater only logs the change. It stands in when no Redis is configured.
type LoggingStatusUpdater struct {
	logger *zap.Logger
}

// NewLoggingStatusUpdater creates a LoggingStatusUpdater
func NewLoggingStatusUpdater(logger *zap.Logger) *LoggingStatusUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingStatusUpdater{logger: logger}
}

// UpdateStatus implements finance.VehicleStatusUpdater
func (u *LoggingStatusUpdater) UpdateStatus(_ context.Context, tenantID, vehicleID uuid.UUID, status finance.VehicleStatus) error {
	u.logger.Info("vehicle status change not forwarded, no inventory stream configured",
		zap.String("tenant_id", tenantID.String()),
		zap.String("vehicle_id", vehicleID.String()),
		zap.String("status", string(status)),
	)
	return nil
}

var (
	_ finance.VehicleStatusUpdater = (*RedisStatusPublisher)(nil)
	_ finance.VehicleStatusUpdater = (*LoggingStatusUpdater)(nil)
)
