// Package context carries the cross-cutting and configuration contexts for
// a checkout flow: TraceContext for observability and CheckoutConfig for the
// merchant-level settings a flow runs under.
package context

import (
	stdcontext "context"

	"github.com/google/uuid"
)

// TraceContext carries only cross-cutting concerns needed for observability.
// It wraps the standard context so OpenTelemetry spans started inside the
// flow driver chain correctly.
type TraceContext struct {
	ctx     stdcontext.Context
	traceID string
	spanID  string
}

// NewTraceContext creates a TraceContext for the given trace ID with a fresh
// span ID.
func NewTraceContext(ctx stdcontext.Context, traceID string) TraceContext {
	return TraceContext{ctx: ctx, traceID: traceID, spanID: uuid.NewString()}
}

// NewRootTraceContext creates a TraceContext with a newly generated trace ID,
// for flows that are not joining an existing trace.
func NewRootTraceContext(ctx stdcontext.Context) TraceContext {
	return NewTraceContext(ctx, uuid.NewString())
}

// NewTraceContextWithIDs creates a TraceContext with explicit trace and span
// IDs, used when adopting IDs from an OpenTelemetry span.
func NewTraceContextWithIDs(ctx stdcontext.Context, traceID, spanID string) TraceContext {
	return TraceContext{ctx: ctx, traceID: traceID, spanID: spanID}
}

// Context returns the wrapped standard context.
func (tc TraceContext) Context() stdcontext.Context {
	if tc.ctx == nil {
		return stdcontext.Background()
	}
	return tc.ctx
}

// TraceID returns the globally unique ID for logs and spans.
func (tc TraceContext) TraceID() string { return tc.traceID }

// SpanID returns the current span identifier.
func (tc TraceContext) SpanID() string { return tc.spanID }
