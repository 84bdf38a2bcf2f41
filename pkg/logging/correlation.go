package logging

import "context"

type correlationIDKey struct{}

// WithCorrelationID returns a context carrying the per-call correlation id.
// Loggers derived through CorrelationID stamp it on every event so one tool
// call can be traced across the request engine.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation id carried by ctx, if any.
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}
