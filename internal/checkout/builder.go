// Package checkout builds the hidden-field form the customer's browser posts
// to the gateway's payment page.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/gateway-notify/internal/adapter"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

var (
	// ErrOrderAlreadyPaid is returned for orders that need no payment.
	ErrOrderAlreadyPaid = errors.New("checkout: order is already paid")
	// ErrNoPaymentMethod is returned when the order has no usable payment method.
	ErrNoPaymentMethod = errors.New("checkout: order has no payment method")
	// ErrUnsupportedGateway is returned when no adapter handles the configured gateway.
	ErrUnsupportedGateway = errors.New("checkout: gateway not supported")
)

// OrderFinder loads orders.
type OrderFinder interface {
	FindOrder(ctx context.Context, id string) (payment.Order, error)
}

// AdapterLookup resolves gateway adapters by name.
type AdapterLookup interface {
	Get(name string) (adapter.GatewayAdapter, bool)
}

// Form is a ready-to-submit gateway checkout form.
type Form struct {
	Gateway string            `json:"gateway"`
	OrderID string            `json:"order_id"`
	Action  string            `json:"action"`
	Method  string            `json:"method"`
	Fields  *adapter.FieldSet `json:"fields"`
}

// Builder resolves an order's gateway and maps the order onto its fields.
type Builder struct {
	orders   OrderFinder
	configs  custom_context.GatewayConfigRepository
	adapters AdapterLookup
}

// NewBuilder creates a new Builder.
func NewBuilder(orders OrderFinder, configs custom_context.GatewayConfigRepository, adapters AdapterLookup) *Builder {
	if orders == nil {
		panic("OrderFinder cannot be nil")
	}
	if configs == nil {
		panic("GatewayConfigRepository cannot be nil")
	}
	if adapters == nil {
		panic("AdapterLookup cannot be nil")
	}
	return &Builder{orders: orders, configs: configs, adapters: adapters}
}

// Build constructs the checkout form for orderID.
func (b *Builder) Build(traceCtx custom_context.TraceContext, orderID string, mode adapter.Mode) (Form, error) {
	tracer := otel.Tracer("checkout")
	ctx, span := tracer.Start(traceCtx.Context(), "Builder.Build")
	defer span.End()
	span.SetAttributes(attribute.String("payment.order_id", orderID), attribute.String("checkout.mode", string(mode)))

	checkoutRequestsTotal.Inc()
	start := time.Now()
	defer func() {
		checkoutBuildDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	order, err := b.orders.FindOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return Form{}, fmt.Errorf("checkout: load order %q: %w", orderID, err)
	}
	if order.Paid {
		return Form{}, fmt.Errorf("%w: %s", ErrOrderAlreadyPaid, order.ID)
	}
	if order.PaymentMethodID == "" {
		return Form{}, fmt.Errorf("%w: %s", ErrNoPaymentMethod, order.ID)
	}
	cfg, err := b.configs.Get(order.PaymentMethodID)
	if err != nil {
		return Form{}, fmt.Errorf("%w: %s: %w", ErrNoPaymentMethod, order.ID, err)
	}
	gw, ok := b.adapters.Get(cfg.Gateway)
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrUnsupportedGateway, cfg.Gateway)
	}
	span.SetAttributes(attribute.String("payment.gateway", cfg.Gateway))

	fields, err := gw.MapFields(order, cfg, mode)
	if err != nil {
		span.RecordError(err)
		return Form{}, fmt.Errorf("checkout: map %s fields for order %s: %w", cfg.Gateway, order.ID, err)
	}
	return Form{
		Gateway: cfg.Gateway,
		OrderID: order.ID,
		Action:  gw.Descriptor().Endpoint(cfg),
		Method:  "POST",
		Fields:  fields,
	}, nil
}
