package utils

import "context"

type ctxKey string

const (
	operatorKey        ctxKey = "operator"
	internalRequestKey ctxKey = "internal_request"
)

// WithOperator records the authenticated merchant operator on the context.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

func GetOperatorFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(operatorKey).(string)
	return v, ok && v != ""
}

// WithInternalRequest marks calls from trusted internal services, which
// get a looser rate tier.
func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, ok := ctx.Value(internalRequestKey).(bool)
	return ok && v
}
