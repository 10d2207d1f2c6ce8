package context

import (
	stdcontext "context"

	"github.com/google/uuid"
)

// TraceContext carries only cross-cutting concerns needed for observability.
type TraceContext struct {
	TraceID string // Globally unique ID for logs and spans
	SpanID  string // Current span identifier

	stdCtx stdcontext.Context
}

// NewTraceContext creates a new TraceContext with a unique TraceID and an initial SpanID.
// A nil parent falls back to context.Background().
func NewTraceContext(parent stdcontext.Context) TraceContext {
	if parent == nil {
		parent = stdcontext.Background()
	}
	return TraceContext{
		TraceID: uuid.NewString(),
		SpanID:  uuid.NewString(),
		stdCtx:  parent,
	}
}

// NewTraceContextWithIDs rebuilds a TraceContext around ctx, keeping an existing trace id.
func NewTraceContextWithIDs(ctx stdcontext.Context, traceID, spanID string) TraceContext {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	return TraceContext{
		TraceID: traceID,
		SpanID:  spanID,
		stdCtx:  ctx,
	}
}

// Context returns the standard context this trace is bound to.
func (tc TraceContext) Context() stdcontext.Context {
	if tc.stdCtx == nil {
		return stdcontext.Background()
	}
	return tc.stdCtx
}

// GetTraceID returns the trace identifier.
func (tc TraceContext) GetTraceID() string {
	return tc.TraceID
}
