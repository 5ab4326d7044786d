package logger

import (
	"context"

	"github.com/dealerdesk/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorKey     contextKey = "actor"
)

// WithContext returns a new context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id stored in ctx
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithActor stores the authenticated actor in ctx so every log line written
// for the request names the tenant, user and role behind it
func WithActor(ctx context.Context, actor shared.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor returns the actor stored in ctx
func GetActor(ctx context.Context) (shared.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(shared.Actor)
	return actor, ok
}

// GetTraceID extracts the trace id of the active span, or ""
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// ContextFields returns the correlation fields found in ctx
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if actor, ok := GetActor(ctx); ok {
		fields = append(fields,
			zap.String("tenant_id", actor.TenantID.String()),
			zap.String("user_id", actor.UserID.String()),
			zap.String("role", string(actor.Role)),
		)
	}
	return fields
}

// L returns the logger of ctx enriched with its correlation fields.
//
//	logger.L(ctx).Info("payment recorded", zap.String("payment_number", n))
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}

// For enriches logger with the correlation fields of ctx
func For(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
