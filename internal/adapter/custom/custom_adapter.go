// Package custom implements a passthrough payment type for merchant-hosted
// payment pages. The endpoint comes from the merchant configuration.
package custom

import (
	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

const gatewayName = "custom"

var descriptor = adapter.Descriptor{
	Name:                  gatewayName,
	OrderRefField:         "order_ref",
	AmountField:           "amount",
	ApprovalField:         "approved",
	MessageField:          "message",
	TransactionField:      "txn_id",
	SuccessSentinel:       "1",
	DefaultDeclineMessage: "Payment was not approved",
	AmountUnit:            adapter.MajorUnits,
	RequiredCredentials:   []string{context.CredentialEndpointURL},
	Ack:                   adapter.AckRedirect,
}

// CustomAdapter implements the GatewayAdapter interface for the passthrough type.
type CustomAdapter struct {
	urls adapter.CallbackURLs
}

// NewCustomAdapter creates a new CustomAdapter.
func NewCustomAdapter(urls adapter.CallbackURLs) *CustomAdapter {
	return &CustomAdapter{urls: urls}
}

// GetName returns the name of the gateway.
func (c *CustomAdapter) GetName() string {
	return gatewayName
}

// Descriptor returns the passthrough notification mapping.
func (c *CustomAdapter) Descriptor() adapter.Descriptor {
	return descriptor
}

// MapFields posts the order reference, amount and billing details using the
// same field names the notification is read with.
func (c *CustomAdapter) MapFields(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error) {
	if err := adapter.ValidateCheckout(descriptor, order, cfg); err != nil {
		return nil, err
	}
	line1, line2 := adapter.SplitStreet(order.Billing.Street)

	fs := adapter.NewFieldSet()
	fs.Set("order_ref", order.ID)
	fs.Set("amount", descriptor.FormatAmount(order.Total))
	fs.SetIfNotEmpty("currency", order.Currency)
	fs.SetIfNotEmpty("description", cfg.Description)
	fs.Set("name", order.Billing.FullName())
	fs.SetIfNotEmpty("email", order.Email)
	fs.Set("address1", line1)
	fs.SetIfNotEmpty("address2", line2)
	fs.Set("city", order.Billing.City)
	fs.Set("region", order.Billing.Region)
	fs.Set("postcode", order.Billing.PostalCode)
	fs.Set("country", order.Billing.Country)
	fs.Set("return_url", c.urls.Notify(gatewayName, mode))
	return fs, nil
}
