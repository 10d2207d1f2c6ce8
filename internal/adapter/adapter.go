// Package adapter defines the interface for payment gateway adapters
// and contains implementations for specific gateways.
// An adapter maps an order onto the gateway's hidden checkout fields and
// describes, through its Descriptor, how the gateway's asynchronous
// notification is read: which field carries the order reference, the amount,
// the approval indicator and its success sentinel.
package adapter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

var (
	// ErrInvalidOrder is returned when an order lacks data a checkout needs.
	ErrInvalidOrder = errors.New("adapter: order is not ready for checkout")
	// ErrMissingCredential is returned when a required merchant credential is empty.
	ErrMissingCredential = errors.New("adapter: missing merchant credential")
	// ErrUnknownMode is returned for an unrecognised mapping mode.
	ErrUnknownMode = errors.New("adapter: unknown mode")
)

// Mode tells the mapper who is submitting the checkout form.
type Mode string

const (
	ModeCheckout         Mode = "checkout"
	ModeBackendReprocess Mode = "backend"
)

// ParseMode accepts "", "checkout" and "backend".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCheckout:
		return ModeCheckout, nil
	case ModeBackendReprocess:
		return ModeBackendReprocess, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// AmountUnit is the unit a gateway expresses amounts in.
type AmountUnit int

const (
	MajorUnits AmountUnit = iota // "49.99"
	MinorUnits                   // "4999"
)

// AckStyle is how the notification endpoint answers the gateway.
type AckStyle int

const (
	AckRedirect AckStyle = iota // meta-refresh to a receipt or decline page
	AckPlain                    // plain-text acknowledgement
)

// Descriptor is the per-gateway strategy for reading notifications and
// picking the checkout endpoint.
type Descriptor struct {
	Name string

	OrderRefField    string
	AmountField      string
	ApprovalField    string
	MessageField     string
	TransactionField string

	SuccessSentinel       string
	DefaultDeclineMessage string
	AmountUnit            AmountUnit

	LiveEndpoint string
	TestEndpoint string

	RequiredCredentials []string
	Ack                 AckStyle

	// SecretField names a payload field carrying a shared secret, when the
	// gateway supports one. It is only checked if the merchant configured
	// SecretCredential.
	SecretField      string
	SecretCredential string

	// RedactFields are masked in attempt-log snapshots.
	RedactFields []string
}

// Endpoint returns the checkout URL for cfg: the test endpoint in test mode,
// or the merchant's endpoint_url credential for gateways without a fixed URL.
func (d Descriptor) Endpoint(cfg context.GatewayConfig) string {
	if d.LiveEndpoint == "" {
		return cfg.GetCredential(context.CredentialEndpointURL)
	}
	if cfg.TestMode && d.TestEndpoint != "" {
		return d.TestEndpoint
	}
	return d.LiveEndpoint
}

// FormatAmount renders amount in the gateway's unit.
func (d Descriptor) FormatAmount(amount decimal.Decimal) string {
	if d.AmountUnit == MinorUnits {
		return amount.Shift(2).Round(0).StringFixed(0)
	}
	return amount.StringFixed(2)
}

// maxAmountLen bounds declared amounts; no real total needs more digits.
const maxAmountLen = 32

// plainAmount admits digits with an optional sign and fraction. Exponents
// are rejected so a short field cannot expand into a huge decimal.
var plainAmount = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// ParseAmount reads an amount declared by the gateway into major units.
func (d Descriptor) ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("adapter: %s: empty amount", d.Name)
	}
	if len(s) > maxAmountLen {
		return decimal.Zero, fmt.Errorf("adapter: %s: amount longer than %d characters", d.Name, maxAmountLen)
	}
	if !plainAmount.MatchString(s) {
		return decimal.Zero, fmt.Errorf("adapter: %s: invalid amount %q", d.Name, s)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("adapter: %s: invalid amount %q: %w", d.Name, s, err)
	}
	if d.AmountUnit == MinorUnits {
		return amount.Shift(-2), nil
	}
	return amount, nil
}

// GatewayAdapter is the interface implemented by each payment gateway adapter.
type GatewayAdapter interface {
	// GetName returns the name of the gateway (e.g., "beanstream", "worldpay").
	GetName() string

	// Descriptor returns the notification field mapping for this gateway.
	Descriptor() Descriptor

	// MapFields builds the hidden fields posted to the gateway. It is pure:
	// the same order, config and mode always produce the same field set.
	MapFields(order payment.Order, cfg context.GatewayConfig, mode Mode) (*FieldSet, error)
}

// ValidateCheckout applies the checks every mapper shares.
func ValidateCheckout(d Descriptor, order payment.Order, cfg context.GatewayConfig) error {
	if strings.TrimSpace(order.Billing.Street) == "" {
		return fmt.Errorf("%w: order %s has no billing street", ErrInvalidOrder, order.ID)
	}
	if strings.TrimSpace(order.Billing.Country) == "" {
		return fmt.Errorf("%w: order %s has no billing country", ErrInvalidOrder, order.ID)
	}
	if !order.Total.IsPositive() {
		return fmt.Errorf("%w: order %s total must be positive, got %s", ErrInvalidOrder, order.ID, order.Total.String())
	}
	for _, key := range d.RequiredCredentials {
		if cfg.GetCredential(key) == "" {
			return fmt.Errorf("%w: %s requires %q", ErrMissingCredential, d.Name, key)
		}
	}
	return nil
}
