package ledger

import "context"

type correlationIDKey struct{}

// WithCorrelationID attaches a request correlation ID to the context. The
// ledger stamps it onto the audit entries emitted by the operation so a
// movement's trail can be traced back to the request that caused it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation ID, if any
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
