package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or a no-op logger outside a request.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := fromContext(ctx); ok {
		return l
	}
	return zap.NewNop()
}

// With derives a logger from the one already in ctx (keeping fields such as
// request_id) or from fallback, adds fields, and stores it back in ctx.
func With(ctx context.Context, fallback *zap.Logger, fields ...zap.Field) (context.Context, *zap.Logger) {
	base, ok := fromContext(ctx)
	if !ok {
		base = fallback
	}
	l := base.With(fields...)
	return NewContext(ctx, l), l
}

func fromContext(ctx context.Context) (*zap.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return l, ok && l != nil
}
