package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gateway-notify/internal/adapter"
	adaptermock "github.com/yourorg/gateway-notify/internal/adapter/mock"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/verifier"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, desc adapter.Descriptor, payload payment.Payload) (verifier.VerifiedPayment, error) {
	args := m.Called(ctx, desc, payload)
	vp, _ := args.Get(0).(verifier.VerifiedPayment)
	return vp, args.Error(1)
}

type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) Apply(ctx context.Context, vp verifier.VerifiedPayment) (bool, error) {
	args := m.Called(ctx, vp)
	return args.Bool(0), args.Error(1)
}

type recorder struct {
	attempts []payment.Attempt
}

func (r *recorder) Record(_ context.Context, a payment.Attempt) {
	r.attempts = append(r.attempts, a)
}

func newTestOrchestrator() (*Orchestrator, *MockVerifier, *MockApplier, *recorder) {
	v, a, r := new(MockVerifier), new(MockApplier), &recorder{}
	reg := adapter.NewRegistry(adaptermock.NewMockAdapter("mockpay"))
	o := NewOrchestrator(reg, v, a, r)
	o.newID = func() string { return "attempt-1" }
	return o, v, a, r
}

func TestNewOrchestrator(t *testing.T) {
	reg := adapter.NewRegistry()
	v, a, r := new(MockVerifier), new(MockApplier), &recorder{}

	assert.NotNil(t, NewOrchestrator(reg, v, a, r))
	assert.Panics(t, func() { NewOrchestrator(nil, v, a, r) }, "Should panic if adapters is nil")
	assert.Panics(t, func() { NewOrchestrator(reg, nil, a, r) }, "Should panic if verifier is nil")
	assert.Panics(t, func() { NewOrchestrator(reg, v, nil, r) }, "Should panic if applier is nil")
	assert.Panics(t, func() { NewOrchestrator(reg, v, a, nil) }, "Should panic if recorder is nil")
}

func TestHandle_Paid(t *testing.T) {
	o, v, a, r := newTestOrchestrator()
	payload := payment.Payload{"ref": "1001", "amount": "49.99", "ok": "yes"}
	vp := verifier.VerifiedPayment{
		Order:   payment.Order{ID: "1001", Total: decimal.RequireFromString("49.99")},
		Config:  custom_context.GatewayConfig{ID: "m", Gateway: "mockpay", ReceiptURL: "https://shop/r/{order}"},
		Gateway: "mockpay",
	}
	v.On("Verify", mock.Anything, mock.AnythingOfType("adapter.Descriptor"), payload).Return(vp, nil)
	a.On("Apply", mock.Anything, vp).Return(true, nil)

	before := testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("mockpay", "PAID", ""))
	out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payload)
	require.NoError(t, err)

	assert.Equal(t, StatePaid, out.State)
	assert.True(t, out.Success())
	assert.False(t, out.AlreadyPaid)
	assert.Equal(t, "1001", out.OrderID)
	require.NotNil(t, out.Config)
	assert.Equal(t, "https://shop/r/1001", out.Config.ReceiptFor(out.OrderID, false))
	assert.Equal(t, adapter.AckPlain, out.Ack)

	require.Len(t, r.attempts, 1)
	att := r.attempts[0]
	assert.Equal(t, "attempt-1", att.ID)
	assert.True(t, att.Success)
	assert.Equal(t, "1001", att.OrderRef())
	assert.Equal(t, messageAccepted, att.Message)
	assert.JSONEq(t, `{"amount":"49.99","ok":"yes","ref":"1001"}`, att.Request)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(att.Response), &resp))
	assert.Equal(t, "PAID", resp["state"])
	assert.NotContains(t, resp, "Config")

	assert.Equal(t, before+1, testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("mockpay", "PAID", "")))
	v.AssertExpectations(t)
	a.AssertExpectations(t)
}

func TestHandle_AlreadyPaid(t *testing.T) {
	o, v, a, r := newTestOrchestrator()
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verifier.VerifiedPayment{Order: payment.Order{ID: "1001"}}, nil)
	a.On("Apply", mock.Anything, mock.Anything).Return(false, nil)

	out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payment.Payload{})
	require.NoError(t, err)
	assert.Equal(t, StatePaid, out.State)
	assert.True(t, out.AlreadyPaid)
	require.Len(t, r.attempts, 1)
	assert.True(t, r.attempts[0].Success)
	assert.Equal(t, MessageAlreadyPaid, r.attempts[0].Message)
}

func TestHandle_Rejected(t *testing.T) {
	o, v, a, r := newTestOrchestrator()
	ve := &verifier.VerificationError{Kind: verifier.KindAmountMismatch, Reason: "declared 1, order total is 49.99", OrderID: "1001", Ref: "1001"}
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verifier.VerifiedPayment{}, ve)

	out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payment.Payload{"ref": "1001"})
	require.NoError(t, err, "verification failures are recovered")
	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, verifier.KindAmountMismatch, out.Kind)
	assert.Equal(t, messageFailed, out.Message)
	assert.Equal(t, "1001", out.OrderID)

	require.Len(t, r.attempts, 1)
	assert.False(t, r.attempts[0].Success)
	assert.Equal(t, "AmountMismatch", r.attempts[0].Kind)
	assert.Equal(t, "AmountMismatch: declared 1, order total is 49.99", r.attempts[0].Message)
	a.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestHandle_RejectedWithoutOrder(t *testing.T) {
	o, v, _, r := newTestOrchestrator()
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).
		Return(verifier.VerifiedPayment{}, &verifier.VerificationError{Kind: verifier.KindOrderNotFound, Reason: "payload has no ref"})

	out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payment.Payload{})
	require.NoError(t, err)
	assert.Equal(t, StateRejected, out.State)
	require.Len(t, r.attempts, 1)
	assert.Nil(t, r.attempts[0].OrderID)
}

func TestHandle_UnknownGateway(t *testing.T) {
	o, v, _, r := newTestOrchestrator()

	before := testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("unknown", "REJECTED", "UnknownGateway"))
	out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "paypal", payment.Payload{"x": "1"})
	require.NoError(t, err)
	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, verifier.KindUnknownGateway, out.Kind)
	require.Len(t, r.attempts, 1)
	assert.Equal(t, "paypal", r.attempts[0].Gateway)
	assert.Equal(t, before+1, testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("unknown", "REJECTED", "UnknownGateway")))
	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUnreadable_RecordsAttempt(t *testing.T) {
	o, v, a, r := newTestOrchestrator()
	cause := errors.New("http: request body too large")

	before := testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("mockpay", "REJECTED", "MalformedPayload"))
	out := o.HandleUnreadable(custom_context.NewTraceContext(context.Background()), "mockpay", cause)
	assert.Equal(t, StateRejected, out.State)
	assert.Equal(t, verifier.KindMalformedPayload, out.Kind)
	assert.Contains(t, out.Reason, "request body too large")

	out = o.HandleUnreadable(custom_context.NewTraceContext(context.Background()), "paypal", cause)
	assert.Equal(t, verifier.KindUnknownGateway, out.Kind)

	require.Len(t, r.attempts, 2)
	att := r.attempts[0]
	assert.False(t, att.Success)
	assert.Nil(t, att.OrderID)
	assert.Equal(t, "mockpay", att.Gateway)
	assert.Equal(t, "MalformedPayload", att.Kind)
	assert.Equal(t, "{}", att.Request)
	assert.Equal(t, before+1, testutil.ToFloat64(GetNotificationsTotal().WithLabelValues("mockpay", "REJECTED", "MalformedPayload")))

	v.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	a.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
}

func TestHandle_StorageFaults(t *testing.T) {
	boom := errors.New("database is locked")

	t.Run("during verification", func(t *testing.T) {
		o, v, _, r := newTestOrchestrator()
		v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verifier.VerifiedPayment{}, boom)

		out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payment.Payload{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
		assert.Equal(t, KindStorageFault, out.Kind)
		assert.Equal(t, StateReceived, out.State)
		require.Len(t, r.attempts, 1)
		assert.False(t, r.attempts[0].Success)
	})

	t.Run("during transition", func(t *testing.T) {
		o, v, a, r := newTestOrchestrator()
		v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verifier.VerifiedPayment{Order: payment.Order{ID: "1001"}}, nil)
		a.On("Apply", mock.Anything, mock.Anything).Return(false, boom)

		out, err := o.Handle(custom_context.NewTraceContext(context.Background()), "mockpay", payment.Payload{})
		require.Error(t, err)
		assert.Equal(t, StateValidated, out.State)
		require.Len(t, r.attempts, 1)
		assert.Equal(t, "1001", r.attempts[0].OrderRef())
		assert.Equal(t, "StorageFault", r.attempts[0].Kind)
	})
}

func TestHandle_RedactsSecrets(t *testing.T) {
	v, a, r := new(MockVerifier), new(MockApplier), &recorder{}
	gw := adaptermock.NewMockAdapter("secretpay")
	gw.Desc.RedactFields = []string{"pw"}
	o := NewOrchestrator(adapter.NewRegistry(gw), v, a, r)
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).
		Return(verifier.VerifiedPayment{}, &verifier.VerificationError{Kind: verifier.KindCallbackUnauthenticated})

	_, err := o.Handle(custom_context.NewTraceContext(context.Background()), "secretpay", payment.Payload{"pw": "hunter2", "ref": "1"})
	require.NoError(t, err)
	require.Len(t, r.attempts, 1)
	assert.NotContains(t, r.attempts[0].Request, "hunter2")
	assert.Contains(t, r.attempts[0].Request, `"pw":"***"`)
}

func TestHandle_TraceIDsFallBackToTraceContext(t *testing.T) {
	o, v, a, r := newTestOrchestrator()
	v.On("Verify", mock.Anything, mock.Anything, mock.Anything).Return(verifier.VerifiedPayment{Order: payment.Order{ID: "1"}}, nil)
	a.On("Apply", mock.Anything, mock.Anything).Return(true, nil)

	traceCtx := custom_context.NewTraceContext(context.Background())
	_, err := o.Handle(traceCtx, "mockpay", payment.Payload{})
	require.NoError(t, err)
	require.Len(t, r.attempts, 1)
	// No tracer provider is installed in unit tests, so spans are not recording.
	assert.Equal(t, traceCtx.GetTraceID(), r.attempts[0].TraceID)
	assert.NotEmpty(t, r.attempts[0].SpanID)
}
