// Package orchestrator drives one gateway notification through
// RECEIVED, ORDER_RESOLVED and VALIDATED to a terminal PAID or REJECTED state.
// Each call records exactly one attempt, whatever the outcome.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/gateway-notify/internal/adapter"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/verifier"
)

// State is a step of the notification flow.
type State string

const (
	StateReceived      State = "RECEIVED"
	StateOrderResolved State = "ORDER_RESOLVED"
	StateValidated     State = "VALIDATED"
	StatePaid          State = "PAID"
	StateRejected      State = "REJECTED"
)

// KindStorageFault marks attempts that failed on infrastructure, not on the payload.
const KindStorageFault verifier.Kind = "StorageFault"

// unknownGatewayLabel keeps arbitrary notify paths out of metric labels.
const unknownGatewayLabel = "unknown"

// MessageAlreadyPaid is the attempt message for a duplicate delivery.
const MessageAlreadyPaid = "Payment already recorded"

const (
	messageAccepted = "Payment accepted"
	messageFailed   = "Your payment could not be processed"
)

// Outcome is what the notification endpoint acknowledges.
type Outcome struct {
	State       State         `json:"state"`
	Gateway     string        `json:"gateway"`
	OrderID     string        `json:"order_id,omitempty"`
	Kind        verifier.Kind `json:"kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Message     string        `json:"message"`
	AlreadyPaid bool          `json:"already_paid,omitempty"`
	AttemptID   string        `json:"attempt_id"`

	// Ack, Config and DeclineURL drive the handler's response.
	Ack        adapter.AckStyle              `json:"-"`
	Config     *custom_context.GatewayConfig `json:"-"`
	DeclineURL string                        `json:"-"`
}

// Success reports whether the order is paid after this notification.
func (o Outcome) Success() bool {
	return o.State == StatePaid
}

// AdapterLookup resolves a gateway name from the notify path.
type AdapterLookup interface {
	Get(name string) (adapter.GatewayAdapter, bool)
}

// NotificationVerifier checks a payload against the stored order.
type NotificationVerifier interface {
	Verify(ctx context.Context, desc adapter.Descriptor, payload payment.Payload) (verifier.VerifiedPayment, error)
}

// TransitionApplier marks a verified payment paid.
type TransitionApplier interface {
	Apply(ctx context.Context, vp verifier.VerifiedPayment) (bool, error)
}

// AttemptRecorder stores one attempt per notification. It must not fail.
type AttemptRecorder interface {
	Record(ctx context.Context, attempt payment.Attempt)
}

// Orchestrator coordinates verifier, transition applier and attempt logger.
type Orchestrator struct {
	adapters AdapterLookup
	verifier NotificationVerifier
	applier  TransitionApplier
	attempts AttemptRecorder
	newID    func() string
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(adapters AdapterLookup, v NotificationVerifier, a TransitionApplier, r AttemptRecorder) *Orchestrator {
	if adapters == nil {
		panic("AdapterLookup cannot be nil")
	}
	if v == nil {
		panic("NotificationVerifier cannot be nil")
	}
	if a == nil {
		panic("TransitionApplier cannot be nil")
	}
	if r == nil {
		panic("AttemptRecorder cannot be nil")
	}
	return &Orchestrator{adapters: adapters, verifier: v, applier: a, attempts: r, newID: uuid.NewString}
}

// Handle processes one notification from gateway. Rejections are reported in
// the Outcome with a nil error; a non-nil error means a storage fault the
// gateway should retry.
func (o *Orchestrator) Handle(traceCtx custom_context.TraceContext, gateway string, payload payment.Payload) (Outcome, error) {
	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(traceCtx.Context(), "Orchestrator.Handle",
		trace.WithAttributes(attribute.String("payment.gateway", gateway)))
	defer span.End()
	traceCtx = custom_context.NewTraceContextWithIDs(ctx, traceCtx.GetTraceID(), span.SpanContext().SpanID().String())

	start := time.Now()
	gatewayLabel := unknownGatewayLabel
	defer func() {
		handleDurationSeconds.WithLabelValues(gatewayLabel).Observe(time.Since(start).Seconds())
	}()

	out := Outcome{State: StateReceived, Gateway: gateway, AttemptID: o.newID(), Ack: adapter.AckPlain}

	a, ok := o.adapters.Get(gateway)
	if !ok {
		out.reject(verifier.NewUnknownGateway(gateway))
		o.finish(traceCtx, span, &out, payload.Snapshot())
		return out, nil
	}
	gatewayLabel = gateway
	desc := a.Descriptor()
	out.Ack = desc.Ack
	snapshot := payload.Snapshot(desc.RedactFields...)

	vp, err := o.verifier.Verify(ctx, desc, payload)
	if err != nil {
		var ve *verifier.VerificationError
		if !errors.As(err, &ve) {
			return o.fault(traceCtx, span, &out, snapshot, err)
		}
		if ve.OrderID != "" {
			out.State = StateOrderResolved
			out.OrderID = ve.OrderID
		}
		out.reject(ve)
		o.finish(traceCtx, span, &out, snapshot)
		return out, nil
	}
	out.State = StateValidated
	out.OrderID = vp.Order.ID
	cfg := vp.Config
	out.Config = &cfg

	changed, err := o.applier.Apply(ctx, vp)
	if err != nil {
		return o.fault(traceCtx, span, &out, snapshot, err)
	}
	out.State = StatePaid
	out.AlreadyPaid = !changed
	out.Message = messageAccepted
	if out.AlreadyPaid {
		out.Message = MessageAlreadyPaid
	}
	o.finish(traceCtx, span, &out, snapshot)
	return out, nil
}

// HandleUnreadable records the attempt for a notification whose body could
// not be read. Nothing is verified or applied. An unregistered gateway is
// reported as such.
func (o *Orchestrator) HandleUnreadable(traceCtx custom_context.TraceContext, gateway string, cause error) Outcome {
	ctx, span := otel.Tracer("orchestrator").Start(traceCtx.Context(), "Orchestrator.HandleUnreadable",
		trace.WithAttributes(attribute.String("payment.gateway", gateway)))
	defer span.End()
	traceCtx = custom_context.NewTraceContextWithIDs(ctx, traceCtx.GetTraceID(), span.SpanContext().SpanID().String())

	out := Outcome{State: StateReceived, Gateway: gateway, AttemptID: o.newID(), Ack: adapter.AckPlain}
	a, ok := o.adapters.Get(gateway)
	if !ok {
		out.reject(verifier.NewUnknownGateway(gateway))
	} else {
		out.Ack = a.Descriptor().Ack
		out.reject(verifier.NewMalformedPayload(cause))
	}
	o.finish(traceCtx, span, &out, payment.Payload{}.Snapshot())
	return out
}

func (out *Outcome) reject(ve *verifier.VerificationError) {
	out.State = StateRejected
	out.Kind = ve.Kind
	out.Reason = ve.Reason
	out.DeclineURL = ve.DeclineURL
	out.Message = messageFailed
}

// fault records a storage failure and returns it to the caller.
func (o *Orchestrator) fault(traceCtx custom_context.TraceContext, span trace.Span, out *Outcome, snapshot string, err error) (Outcome, error) {
	out.Kind = KindStorageFault
	out.Reason = err.Error()
	out.Message = messageFailed
	span.RecordError(err)
	slog.ErrorContext(traceCtx.Context(), "Orchestrator: storage fault while handling notification",
		"gateway", out.Gateway, "order_id", out.OrderID, "state", string(out.State), "error", err)
	o.finish(traceCtx, span, out, snapshot)
	return *out, fmt.Errorf("orchestrator: %s notification: %w", out.Gateway, err)
}

// finish writes the single attempt entry and the telemetry for out.
func (o *Orchestrator) finish(traceCtx custom_context.TraceContext, span trace.Span, out *Outcome, snapshot string) {
	ctx := traceCtx.Context()
	response, err := json.Marshal(out)
	if err != nil {
		response = []byte(`{}`)
	}

	attempt := payment.Attempt{
		ID:       out.AttemptID,
		Gateway:  out.Gateway,
		Kind:     string(out.Kind),
		Message:  attemptMessage(out),
		Success:  out.Success(),
		Request:  snapshot,
		Response: string(response),
	}
	if out.OrderID != "" {
		id := out.OrderID
		attempt.OrderID = &id
	}
	if sc := span.SpanContext(); !sc.IsValid() {
		attempt.TraceID = traceCtx.GetTraceID()
		attempt.SpanID = traceCtx.SpanID
	}
	o.attempts.Record(ctx, attempt)

	kind := string(out.Kind)
	gatewayLabel := out.Gateway
	if out.Kind == verifier.KindUnknownGateway {
		gatewayLabel = unknownGatewayLabel
	}
	notificationsTotal.WithLabelValues(gatewayLabel, string(out.State), kind).Inc()
	span.SetAttributes(
		attribute.String("payment.state", string(out.State)),
		attribute.String("payment.order_id", out.OrderID),
		attribute.Bool("payment.already_paid", out.AlreadyPaid),
	)
	if out.Kind != "" {
		span.SetStatus(codes.Error, kind)
	}

	slog.InfoContext(ctx, "Orchestrator: notification handled",
		"gateway", out.Gateway, "order_id", out.OrderID, "state", string(out.State),
		"kind", kind, "already_paid", out.AlreadyPaid, "attempt_id", out.AttemptID)
}

func attemptMessage(out *Outcome) string {
	switch {
	case out.Kind != "":
		return fmt.Sprintf("%s: %s", out.Kind, out.Reason)
	case out.AlreadyPaid:
		return MessageAlreadyPaid
	}
	return messageAccepted
}
