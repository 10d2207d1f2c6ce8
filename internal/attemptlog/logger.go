// Package attemptlog records every notification processing attempt.
// Recording is best effort: failures are counted and logged, never returned,
// so they cannot mask the outcome of the notification itself.
package attemptlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/gateway-notify/internal/circuitbreaker"
	"github.com/yourorg/gateway-notify/internal/payment"
)

// Logger writes attempts to a primary sink guarded by a circuit breaker and
// falls back to a secondary sink when the primary fails or is open.
type Logger struct {
	primary  Sink
	fallback Sink
	breaker  *circuitbreaker.CircuitBreaker
	timeout  time.Duration
	now      func() time.Time
}

// NewLogger creates a Logger. A nil fallback logs through slog.Default();
// a nil breaker uses the default breaker configuration.
func NewLogger(primary, fallback Sink, breaker *circuitbreaker.CircuitBreaker) *Logger {
	if primary == nil {
		panic("primary Sink cannot be nil")
	}
	if fallback == nil {
		fallback = NewSlogSink(nil)
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	}
	return &Logger{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		timeout:  2 * time.Second,
		now:      time.Now,
	}
}

// Record stores attempt. Missing ID, timestamp and trace ids are filled in.
func (l *Logger) Record(ctx context.Context, attempt payment.Attempt) {
	defer func() {
		if r := recover(); r != nil {
			attemptsDroppedTotal.Inc()
			slog.ErrorContext(ctx, "AttemptLog: recovered panic while recording attempt",
				"attempt_id", attempt.ID, "panic", fmt.Sprint(r))
		}
	}()

	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = l.now().UTC()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		if attempt.TraceID == "" {
			attempt.TraceID = sc.TraceID().String()
		}
		if attempt.SpanID == "" {
			attempt.SpanID = sc.SpanID().String()
		}
	}

	// Writes must survive a cancelled request context.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	name := l.primary.Name()
	if l.breaker.AllowRequest(name) {
		err := l.primary.Write(writeCtx, attempt)
		if err == nil {
			l.breaker.RecordSuccess(name)
			attemptWritesTotal.WithLabelValues(name, "ok").Inc()
			return
		}
		l.breaker.RecordFailure(name)
		attemptWritesTotal.WithLabelValues(name, "error").Inc()
		slog.WarnContext(ctx, "AttemptLog: primary sink failed, using fallback",
			"sink", name, "attempt_id", attempt.ID, "error", err)
	} else {
		attemptWritesTotal.WithLabelValues(name, "skipped").Inc()
	}

	fb := l.fallback.Name()
	if err := l.fallback.Write(writeCtx, attempt); err != nil {
		attemptWritesTotal.WithLabelValues(fb, "error").Inc()
		attemptsDroppedTotal.Inc()
		slog.ErrorContext(ctx, "AttemptLog: attempt dropped",
			"sink", fb, "attempt_id", attempt.ID, "order_id", attempt.OrderRef(), "error", err)
		return
	}
	attemptWritesTotal.WithLabelValues(fb, "ok").Inc()
}
