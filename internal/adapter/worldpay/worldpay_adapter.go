// Package worldpay implements the WorldPay Select Junior purchase form.
package worldpay

import (
	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

const (
	gatewayName        = "worldpay"
	liveURL            = "https://secure.worldpay.com/wcc/purchase"
	testURL            = "https://secure-test.worldpay.com/wcc/purchase"
	credInstallationID = "installation_id"
	testModeOn         = "100"
	testModeOff        = "0"
	callbackPWField    = "callbackPW"
)

var descriptor = adapter.Descriptor{
	Name:                  gatewayName,
	OrderRefField:         "cartId",
	AmountField:           "amount",
	ApprovalField:         "transStatus",
	MessageField:          "rawAuthMessage",
	TransactionField:      "transId",
	SuccessSentinel:       "Y",
	DefaultDeclineMessage: "Transaction cancelled or declined at WorldPay",
	AmountUnit:            adapter.MajorUnits,
	LiveEndpoint:          liveURL,
	TestEndpoint:          testURL,
	RequiredCredentials:   []string{credInstallationID},
	Ack:                   adapter.AckPlain,
	SecretField:           callbackPWField,
	SecretCredential:      context.CredentialCallbackPassword,
	RedactFields:          []string{callbackPWField},
}

// WorldpayAdapter implements the GatewayAdapter interface for WorldPay.
type WorldpayAdapter struct {
	urls adapter.CallbackURLs
}

// NewWorldpayAdapter creates a new WorldpayAdapter.
func NewWorldpayAdapter(urls adapter.CallbackURLs) *WorldpayAdapter {
	return &WorldpayAdapter{urls: urls}
}

// GetName returns the name of the gateway.
func (w *WorldpayAdapter) GetName() string {
	return gatewayName
}

// Descriptor returns the WorldPay notification mapping.
func (w *WorldpayAdapter) Descriptor() adapter.Descriptor {
	return descriptor
}

// MapFields builds the purchase form fields. The callback URL is sent as
// MC_callback (dynamic payment response URL).
func (w *WorldpayAdapter) MapFields(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error) {
	if err := adapter.ValidateCheckout(descriptor, order, cfg); err != nil {
		return nil, err
	}

	currency := cfg.Currency
	if currency == "" {
		currency = order.Currency
	}
	testMode := testModeOff
	if cfg.TestMode {
		testMode = testModeOn
	}
	line1, line2 := adapter.SplitStreet(order.Billing.Street)

	fs := adapter.NewFieldSet()
	fs.Set("instId", cfg.GetCredential(credInstallationID))
	fs.Set("cartId", order.ID)
	fs.Set("amount", descriptor.FormatAmount(order.Total))
	fs.Set("currency", currency)
	fs.SetIfNotEmpty("desc", cfg.Description)
	fs.Set("testMode", testMode)
	fs.SetIfNotEmpty("authMode", cfg.TransactionType)
	fs.Set("name", order.Billing.FullName())
	fs.Set("address1", line1)
	fs.SetIfNotEmpty("address2", line2)
	fs.Set("town", order.Billing.City)
	fs.Set("region", order.Billing.Region)
	fs.Set("postcode", order.Billing.PostalCode)
	fs.Set("country", order.Billing.Country)
	fs.SetIfNotEmpty("email", order.Email)
	fs.SetIfNotEmpty("tel", order.Billing.Phone)
	fs.Set("MC_callback", w.urls.Notify(gatewayName, mode))
	return fs, nil
}
