// Package beanstream implements the Beanstream hosted payment form.
package beanstream

import (
	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

const (
	gatewayName     = "beanstream"
	paymentFormURL  = "https://www.beanstream.com/scripts/payment/payment.asp"
	defaultTrnType  = "P" // purchase
	credMerchantID  = "merchant_id"
	approvedValue   = "1"
	declinedMessage = "Transaction declined by Beanstream"
)

var descriptor = adapter.Descriptor{
	Name:                  gatewayName,
	OrderRefField:         "trnOrderNumber",
	AmountField:           "trnAmount",
	ApprovalField:         "trnApproved",
	MessageField:          "messageText",
	TransactionField:      "trnId",
	SuccessSentinel:       approvedValue,
	DefaultDeclineMessage: declinedMessage,
	AmountUnit:            adapter.MajorUnits,
	LiveEndpoint:          paymentFormURL,
	TestEndpoint:          paymentFormURL, // test mode is a property of the merchant account
	RequiredCredentials:   []string{credMerchantID},
	Ack:                   adapter.AckRedirect,
}

// BeanstreamAdapter implements the GatewayAdapter interface for Beanstream.
type BeanstreamAdapter struct {
	urls adapter.CallbackURLs
}

// NewBeanstreamAdapter creates a new BeanstreamAdapter.
func NewBeanstreamAdapter(urls adapter.CallbackURLs) *BeanstreamAdapter {
	return &BeanstreamAdapter{urls: urls}
}

// GetName returns the name of the gateway.
func (b *BeanstreamAdapter) GetName() string {
	return gatewayName
}

// Descriptor returns the Beanstream notification mapping.
func (b *BeanstreamAdapter) Descriptor() adapter.Descriptor {
	return descriptor
}

// MapFields builds the hosted payment form fields.
// Beanstream posts the customer back to approvedPage/declinedPage with the
// transaction result, so both point at the notification endpoint.
func (b *BeanstreamAdapter) MapFields(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error) {
	if err := adapter.ValidateCheckout(descriptor, order, cfg); err != nil {
		return nil, err
	}

	trnType := cfg.TransactionType
	if trnType == "" {
		trnType = defaultTrnType
	}
	callback := b.urls.Notify(gatewayName, mode)

	fs := adapter.NewFieldSet()
	fs.Set("merchant_id", cfg.GetCredential(credMerchantID))
	fs.Set("trnType", trnType)
	fs.Set("trnOrderNumber", order.ID)
	fs.Set("trnAmount", descriptor.FormatAmount(order.Total))

	bill1, bill2 := adapter.SplitStreet(order.Billing.Street)
	fs.Set("ordName", order.Billing.FullName())
	fs.SetIfNotEmpty("ordEmailAddress", order.Email)
	fs.SetIfNotEmpty("ordPhoneNumber", order.Billing.Phone)
	fs.Set("ordAddress1", bill1)
	fs.SetIfNotEmpty("ordAddress2", bill2)
	fs.Set("ordCity", order.Billing.City)
	fs.Set("ordProvince", order.Billing.Region)
	fs.Set("ordPostalCode", order.Billing.PostalCode)
	fs.Set("ordCountry", order.Billing.Country)

	if order.Shipping.Street != "" {
		ship1, ship2 := adapter.SplitStreet(order.Shipping.Street)
		fs.Set("shipName", order.Shipping.FullName())
		fs.Set("shipAddress1", ship1)
		fs.SetIfNotEmpty("shipAddress2", ship2)
		fs.Set("shipCity", order.Shipping.City)
		fs.Set("shipProvince", order.Shipping.Region)
		fs.Set("shipPostalCode", order.Shipping.PostalCode)
		fs.Set("shipCountry", order.Shipping.Country)
	}

	fs.Set("approvedPage", callback)
	fs.Set("declinedPage", callback)
	return fs, nil
}
