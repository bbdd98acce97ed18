package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	tradeNoKey   ctxKey = "trade_no"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTradeNo tags the context so every log line of a payment attempt can
// be correlated with the provider trade number.
func WithTradeNo(ctx context.Context, tradeNo string) context.Context {
	return context.WithValue(ctx, tradeNoKey, tradeNo)
}

func TradeNoFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tradeNoKey).(string); ok {
		return v
	}
	return ""
}

// FromCtx returns the global logger with whatever correlation fields the
// context carries.
func FromCtx(ctx context.Context) *zap.Logger {
	l := L()
	if rid := RequestIDFrom(ctx); rid != "" {
		l = l.With(zap.String("request_id", rid))
	}
	if tn := TradeNoFrom(ctx); tn != "" {
		l = l.With(zap.String("trade_no", tn))
	}
	return l
}
