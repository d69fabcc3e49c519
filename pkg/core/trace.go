package core

import (
	"context"
)

// TraceContext carries W3C trace-context values across the queue boundary.
// Enqueue stamps the caller's trace context onto the stored message, and the
// job runner restores it before invoking the handler, so work triggered by a
// message stays attributable to the request that enqueued it.
type TraceContext struct {
	Traceparent string
	Tracestate  string
}

type traceContextKey struct{}

// WithTraceContext returns a context carrying tc.
func WithTraceContext(ctx context.Context, tc TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, tc)
}

// TraceContextFrom extracts the trace context from ctx, returning the zero
// value when none is set.
func TraceContextFrom(ctx context.Context) TraceContext {
	tc, _ := ctx.Value(traceContextKey{}).(TraceContext)
	return tc
}
