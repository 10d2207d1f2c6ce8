// Package transition applies the unpaid to paid transition for a verified
// payment. The store's MarkPaid performs the compare-and-set together with
// the status log append, so concurrent duplicates record one status entry.
package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/gateway-notify/internal/payment"
	"github.com/yourorg/gateway-notify/internal/policy"
	"github.com/yourorg/gateway-notify/internal/verifier"
)

// Marker is the order store operation the applier needs.
type Marker interface {
	MarkPaid(ctx context.Context, orderID string, entry payment.StatusEntry) (bool, error)
}

// StatusSelector picks an override status for a payment.
type StatusSelector interface {
	Select(facts policy.Facts) (policy.Decision, error)
}

// Applier marks verified payments paid.
type Applier struct {
	orders Marker
	policy StatusSelector
	now    func() time.Time
}

// NewApplier creates an Applier. selector may be nil, in which case the
// gateway's configured success status is always used.
func NewApplier(orders Marker, selector StatusSelector) *Applier {
	if orders == nil {
		panic("order Marker cannot be nil")
	}
	return &Applier{orders: orders, policy: selector, now: time.Now}
}

// Apply reports true when this call moved the order to paid and false when
// it was already paid.
func (a *Applier) Apply(ctx context.Context, vp verifier.VerifiedPayment) (bool, error) {
	entry := payment.StatusEntry{
		OrderID:   vp.Order.ID,
		StatusID:  a.statusFor(ctx, vp),
		Gateway:   vp.Gateway,
		Comment:   comment(vp),
		CreatedAt: a.now().UTC(),
	}
	changed, err := a.orders.MarkPaid(ctx, vp.Order.ID, entry)
	if err != nil {
		return false, fmt.Errorf("transition: mark order %s paid: %w", vp.Order.ID, err)
	}
	if changed {
		slog.InfoContext(ctx, "Transition: order marked paid",
			"order_id", vp.Order.ID, "gateway", vp.Gateway, "status_id", entry.StatusID)
	} else {
		slog.InfoContext(ctx, "Transition: order already paid, no-op",
			"order_id", vp.Order.ID, "gateway", vp.Gateway)
	}
	return changed, nil
}

// statusFor falls back to the configured success status when no rule
// matches or the policy cannot be evaluated.
func (a *Applier) statusFor(ctx context.Context, vp verifier.VerifiedPayment) int {
	status := vp.Config.SuccessStatusID
	if a.policy == nil {
		return status
	}
	decision, err := a.policy.Select(policy.Facts{
		Amount:   vp.Amount.InexactFloat64(),
		Currency: vp.Order.Currency,
		Gateway:  vp.Gateway,
		TestMode: vp.Config.TestMode,
		OrderID:  vp.Order.ID,
	})
	if err != nil {
		slog.WarnContext(ctx, "Transition: status policy failed, using configured status",
			"order_id", vp.Order.ID, "error", err)
		return status
	}
	if decision.Matched {
		slog.InfoContext(ctx, "Transition: status rule matched",
			"order_id", vp.Order.ID, "rule", decision.Rule, "status_id", decision.StatusID)
		return decision.StatusID
	}
	return status
}

func comment(vp verifier.VerifiedPayment) string {
	c := fmt.Sprintf("Payment confirmed by %s", vp.Gateway)
	if vp.TransactionID != "" {
		c += fmt.Sprintf(" (transaction %s)", vp.TransactionID)
	}
	if vp.Config.TestMode {
		c += " [test mode]"
	}
	return c
}
