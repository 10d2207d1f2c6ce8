package beanstream

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

func testOrder() payment.Order {
	return payment.Order{
		ID:    "1001",
		Total: decimal.RequireFromString("49.99"),
		Email: "jo@example.com",
		Billing: payment.Address{
			FirstName: "Jo", LastName: "Bloggs",
			Street: "123 Main St\r\nSuite 4", City: "Victoria", Region: "BC",
			PostalCode: "V8W 1A1", Country: "CA", Phone: "250-555-0100",
		},
	}
}

func TestNewBeanstreamAdapter(t *testing.T) {
	a := NewBeanstreamAdapter(adapter.CallbackURLs{BaseURL: "https://shop"})
	require.NotNil(t, a)
	assert.Equal(t, "beanstream", a.GetName())
	d := a.Descriptor()
	assert.Equal(t, "trnOrderNumber", d.OrderRefField)
	assert.Equal(t, "1", d.SuccessSentinel)
	assert.Equal(t, adapter.AckRedirect, d.Ack)
}

func TestBeanstreamAdapter_MapFields(t *testing.T) {
	a := NewBeanstreamAdapter(adapter.CallbackURLs{BaseURL: "https://shop.example.com"})
	cfg := context.GatewayConfig{ID: "bs", Gateway: "beanstream", Credentials: map[string]string{"merchant_id": "300200578"}}

	fs, err := a.MapFields(testOrder(), cfg, adapter.ModeCheckout)
	require.NoError(t, err)

	get := func(k string) string { v, _ := fs.Get(k); return v }
	assert.Equal(t, "300200578", get("merchant_id"))
	assert.Equal(t, "P", get("trnType"))
	assert.Equal(t, "1001", get("trnOrderNumber"))
	assert.Equal(t, "49.99", get("trnAmount"))
	assert.Equal(t, "Jo Bloggs", get("ordName"))
	assert.Equal(t, "123 Main St", get("ordAddress1"))
	assert.Equal(t, "Suite 4", get("ordAddress2"))
	assert.Equal(t, "https://shop.example.com/payment-module/beanstream/notify", get("approvedPage"))
	assert.Equal(t, get("approvedPage"), get("declinedPage"))
	_, hasShip := fs.Get("shipName")
	assert.False(t, hasShip, "shipping block is only sent when a shipping street exists")
	assert.Equal(t, "merchant_id", fs.Names()[0])
}

func TestBeanstreamAdapter_MapFields_ShippingAndBackend(t *testing.T) {
	a := NewBeanstreamAdapter(adapter.CallbackURLs{BaseURL: "https://shop.example.com"})
	cfg := context.GatewayConfig{TransactionType: "PA", Credentials: map[string]string{"merchant_id": "1"}}
	order := testOrder()
	order.Billing.Street = "9 Single Line Rd"
	order.Shipping = payment.Address{FirstName: "Sam", Street: "PO Box 7\nStation A\nDepot", City: "Nanaimo", Country: "CA"}

	fs, err := a.MapFields(order, cfg, adapter.ModeBackendReprocess)
	require.NoError(t, err)

	get := func(k string) string { v, _ := fs.Get(k); return v }
	assert.Equal(t, "PA", get("trnType"))
	_, hasAddr2 := fs.Get("ordAddress2")
	assert.False(t, hasAddr2)
	assert.Equal(t, "Sam", get("shipName"))
	assert.Equal(t, "PO Box 7", get("shipAddress1"))
	assert.Equal(t, "Station A Depot", get("shipAddress2"))
	assert.Contains(t, get("approvedPage"), "mode=backend")
}

func TestBeanstreamAdapter_MapFields_MissingMerchant(t *testing.T) {
	a := NewBeanstreamAdapter(adapter.CallbackURLs{})
	_, err := a.MapFields(testOrder(), context.GatewayConfig{}, adapter.ModeCheckout)
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrMissingCredential))
}
