package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "observability_request_id"
	providerKey  contextKey = "observability_provider"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithProvider tags the context with the billing provider serving the request.
func WithProvider(ctx context.Context, provider string) context.Context {
	if ctx == nil || provider == "" {
		return ctx
	}
	return context.WithValue(ctx, providerKey, provider)
}

func ProviderFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(providerKey).(string)
	return value
}
