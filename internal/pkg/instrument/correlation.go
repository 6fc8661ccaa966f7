package instrument

import "context"

type correlationIDKey struct{}

// CorrelationHeader carries the correlation id on HTTP requests and broker
// messages.
const CorrelationHeader = "X-Correlation-ID"

// SetCorrelationID stores id in ctx.
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID returns the id stored in ctx, or "".
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
