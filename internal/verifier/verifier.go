// Package verifier validates an inbound gateway notification against the
// stored order and its payment method configuration. Checks run in a fixed
// order and stop at the first failure. Verification never contacts the
// gateway: authenticity rests on the payload alone, plus the optional
// shared secret some gateways support.
package verifier

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourorg/gateway-notify/internal/adapter"
	custom_context "github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/store"
)

// OrderFinder is the part of the order store the verifier reads.
type OrderFinder interface {
	FindOrder(ctx context.Context, id string) (payment.Order, error)
}

// VerifiedPayment is a notification that passed every check.
type VerifiedPayment struct {
	Order         payment.Order
	Config        custom_context.GatewayConfig
	Gateway       string
	Amount        decimal.Decimal
	TransactionID string
	Message       string
	Payload       payment.Payload
}

// Verifier runs the notification checks.
type Verifier struct {
	orders  OrderFinder
	configs custom_context.GatewayConfigRepository
}

// NewVerifier creates a Verifier.
func NewVerifier(orders OrderFinder, configs custom_context.GatewayConfigRepository) *Verifier {
	if orders == nil {
		panic("OrderFinder cannot be nil")
	}
	if configs == nil {
		panic("GatewayConfigRepository cannot be nil")
	}
	return &Verifier{orders: orders, configs: configs}
}

// Verify checks payload as a notification from the gateway described by desc.
// Rejections are returned as *VerificationError; any other error is a
// storage fault.
func (v *Verifier) Verify(ctx context.Context, desc adapter.Descriptor, payload payment.Payload) (VerifiedPayment, error) {
	// 1. order reference
	ref := strings.TrimSpace(payload.Get(desc.OrderRefField))
	if ref == "" {
		return VerifiedPayment{}, reject(KindOrderNotFound, "", "", "payload has no %s", desc.OrderRefField)
	}
	order, err := v.orders.FindOrder(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return VerifiedPayment{}, reject(KindOrderNotFound, ref, "", "order %q does not exist", ref)
	}
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("verifier: load order %q: %w", ref, err)
	}

	// 2. payment method
	if order.PaymentMethodID == "" {
		return VerifiedPayment{}, reject(KindPaymentMethodMissing, ref, order.ID, "order %s has no payment method", order.ID)
	}
	cfg, err := v.configs.Get(order.PaymentMethodID)
	if errors.Is(err, custom_context.ErrGatewayConfigNotFound) {
		return VerifiedPayment{}, reject(KindPaymentMethodMissing, ref, order.ID,
			"payment method %q of order %s is not configured", order.PaymentMethodID, order.ID)
	}
	if err != nil {
		return VerifiedPayment{}, fmt.Errorf("verifier: load payment method %q: %w", order.PaymentMethodID, err)
	}
	if cfg.Gateway != desc.Name {
		return VerifiedPayment{}, reject(KindPaymentMethodMismatch, ref, order.ID,
			"order %s is paid with %q, notification came from %q", order.ID, cfg.Gateway, desc.Name)
	}

	// 3. shared secret, only when the merchant configured one
	if desc.SecretField != "" && desc.SecretCredential != "" {
		if want := cfg.GetCredential(desc.SecretCredential); want != "" {
			got := payload.Get(desc.SecretField)
			if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				return VerifiedPayment{}, reject(KindCallbackUnauthenticated, ref, order.ID,
					"%s does not match the configured value", desc.SecretField).declineTo(cfg.DeclineURL)
			}
		}
	}

	// 4. amount
	declared := payload.Get(desc.AmountField)
	amount, err := desc.ParseAmount(declared)
	if err != nil {
		return VerifiedPayment{}, reject(KindAmountMismatch, ref, order.ID,
			"declared amount %q is not a plain decimal", clip(declared)).declineTo(cfg.DeclineURL)
	}
	if !amount.Equal(order.Total) {
		return VerifiedPayment{}, reject(KindAmountMismatch, ref, order.ID,
			"declared %s, order total is %s", clip(declared), order.Total.String()).declineTo(cfg.DeclineURL)
	}

	// 5. approval
	message := strings.TrimSpace(payload.Get(desc.MessageField))
	if strings.TrimSpace(payload.Get(desc.ApprovalField)) != desc.SuccessSentinel {
		if message == "" {
			message = desc.DefaultDeclineMessage
		}
		return VerifiedPayment{}, reject(KindNotApproved, ref, order.ID, "%s", message).declineTo(cfg.DeclineURL)
	}

	return VerifiedPayment{
		Order:         order,
		Config:        cfg,
		Gateway:       desc.Name,
		Amount:        amount,
		TransactionID: strings.TrimSpace(payload.Get(desc.TransactionField)),
		Message:       message,
		Payload:       payload,
	}, nil
}

// clip bounds gateway-supplied text copied into rejection reasons.
func clip(s string) string {
	const limit = 32
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
