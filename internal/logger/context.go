package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerCtxKey ctxKey = iota
	requestIDCtxKey
)

func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

// FromContext returns the request logger. Outside a request it is a no-op
// logger, so callers never check for nil.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID tags ctx with id and attaches a logger that stamps every
// line with it.
func WithRequestID(ctx context.Context, base *zap.Logger, id string) (context.Context, *zap.Logger) {
	l := base.With(zap.String("request_id", id))
	ctx = context.WithValue(ctx, requestIDCtxKey, id)
	return WithContext(ctx, l), l
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}
