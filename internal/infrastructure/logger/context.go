package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// scope is the request-scoped logging state carried by a context
type scope struct {
	log        *zap.Logger
	requestID  string
	operatorID string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithContext stores log as the request logger of ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.log = log
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the request logger, or a no-op logger outside a request
func FromContext(ctx context.Context) *zap.Logger {
	if s := scopeOf(ctx); s.log != nil {
		return s.log
	}
	return zap.NewNop()
}

// WithRequestID records the request id and tags log with it
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.requestID = requestID
	s.log = log.With(zap.String("request_id", requestID))
	return context.WithValue(ctx, scopeKey{}, s), s.log
}

// WithOperatorID records the authenticated operator and tags log with it
func WithOperatorID(ctx context.Context, log *zap.Logger, operatorID string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.operatorID = operatorID
	s.log = log.With(zap.String("operator_id", operatorID))
	return context.WithValue(ctx, scopeKey{}, s), s.log
}

// GetRequestID returns the request id of ctx, if any
func GetRequestID(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

// GetOperatorID returns the operator of ctx, if any
func GetOperatorID(ctx context.Context) string {
	return scopeOf(ctx).operatorID
}

// GetTraceID returns the trace id of the span active in ctx, or ""
func GetTraceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// L returns the request logger of ctx tagged with the active trace and span,
// so service logs line up with the request's trace:
//
//	logger.L(ctx).Warn("Receipt lock contended", zap.String("receipt_id", id))
func L(ctx context.Context) *zap.Logger {
	return withTrace(ctx, FromContext(ctx))
}

func withTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return log
	}
	return log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
