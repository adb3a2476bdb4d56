// Package audit records audit entries to journals
package audit

import "context"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// Context keys for journal records
const (
	KeyModule    ContextKey = "module"    // module that produced the entry
	KeyRequestID ContextKey = "requestId" // request that triggered the entry
	KeySource    ContextKey = "source"    // subsystem or device name
)

// WithModule adds the producing module name to the context
func WithModule(ctx context.Context, module string) context.Context {
	return context.WithValue(ctx, KeyModule, module)
}

// WithRequestID adds the request identifier to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, KeyRequestID, requestID)
}

// WithSource adds the source subsystem to the context
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, KeySource, source)
}

func contextString(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
