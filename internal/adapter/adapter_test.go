package adapter_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/adapter/mock"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

func TestSplitStreet(t *testing.T) {
	tests := []struct {
		name   string
		street string
		line1  string
		line2  string
	}{
		{"CRLF two lines", "123 Main St\r\nSuite 4", "123 Main St", "Suite 4"},
		{"three lines collapse", "123 Main St\nApt 4\nExtra", "123 Main St", "Apt 4 Extra"},
		{"single line", "123 Main St", "123 Main St", ""},
		{"blank lines dropped", "1 Queen St\n\n\nLevel 2\r\n", "1 Queen St", "Level 2"},
		{"lone CR ends a line", "A\rB", "A", "B"},
		{"lone CRs collapse", "12 High St\rFlat 3\rRear", "12 High St", "Flat 3 Rear"},
		{"empty", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l1, l2 := adapter.SplitStreet(tc.street)
			assert.Equal(t, tc.line1, l1)
			assert.Equal(t, tc.line2, l2)
		})
	}
}

func TestFieldSet_PreservesOrderAndReplaces(t *testing.T) {
	fs := adapter.NewFieldSet()
	fs.Set("b", "1")
	fs.Set("a", "2")
	fs.SetIfNotEmpty("skip", "")
	fs.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, fs.Names())
	assert.Equal(t, 2, fs.Len())
	v, ok := fs.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	_, ok = fs.Get("skip")
	assert.False(t, ok)

	raw, err := json.Marshal(fs)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"b","value":"3"},{"name":"a","value":"2"}]`, string(raw))
}

func TestDescriptor_Amounts(t *testing.T) {
	major := adapter.Descriptor{Name: "major", AmountUnit: adapter.MajorUnits}
	minor := adapter.Descriptor{Name: "minor", AmountUnit: adapter.MinorUnits}
	total := decimal.RequireFromString("49.99")

	assert.Equal(t, "49.99", major.FormatAmount(total))
	assert.Equal(t, "4999", minor.FormatAmount(total))
	assert.Equal(t, "10.00", major.FormatAmount(decimal.NewFromInt(10)))

	got, err := minor.ParseAmount("4999")
	require.NoError(t, err)
	assert.True(t, got.Equal(total))

	got, err = major.ParseAmount(" 49.990 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(total))

	_, err = major.ParseAmount("")
	assert.Error(t, err)
	_, err = major.ParseAmount("$49.99")
	assert.Error(t, err)

	for _, bad := range []string{"1e3", "1E3", "1e10000000", "+1", ".5", "5.", "0x10", strings.Repeat("9", 33)} {
		_, err = major.ParseAmount(bad)
		assert.Error(t, err, bad)
	}
	got, err = major.ParseAmount("-0.01")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("-0.01")))
}

func TestDescriptor_Endpoint(t *testing.T) {
	d := adapter.Descriptor{LiveEndpoint: "https://live", TestEndpoint: "https://test"}
	assert.Equal(t, "https://live", d.Endpoint(context.GatewayConfig{}))
	assert.Equal(t, "https://test", d.Endpoint(context.GatewayConfig{TestMode: true}))

	passthrough := adapter.Descriptor{}
	cfg := context.GatewayConfig{Credentials: map[string]string{context.CredentialEndpointURL: "https://merchant/pay"}}
	assert.Equal(t, "https://merchant/pay", passthrough.Endpoint(cfg))
}

func TestParseMode(t *testing.T) {
	m, err := adapter.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeCheckout, m)

	m, err = adapter.ParseMode("Backend")
	require.NoError(t, err)
	assert.Equal(t, adapter.ModeBackendReprocess, m)

	_, err = adapter.ParseMode("admin")
	assert.True(t, errors.Is(err, adapter.ErrUnknownMode))
}

func TestCallbackURLs_Notify(t *testing.T) {
	urls := adapter.CallbackURLs{BaseURL: "https://shop.example.com/"}
	assert.Equal(t, "https://shop.example.com/payment-module/eway/notify", urls.Notify("eway", adapter.ModeCheckout))
	assert.Equal(t, "https://shop.example.com/payment-module/eway/notify?mode=backend", urls.Notify("eway", adapter.ModeBackendReprocess))
}

func TestValidateCheckout(t *testing.T) {
	d := adapter.Descriptor{Name: "gw", RequiredCredentials: []string{"merchant_id"}}
	cfg := context.GatewayConfig{Credentials: map[string]string{"merchant_id": "m-1"}}
	order := payment.Order{
		ID:      "1001",
		Total:   decimal.RequireFromString("49.99"),
		Billing: payment.Address{Street: "1 Main St", Country: "CA"},
	}
	require.NoError(t, adapter.ValidateCheckout(d, order, cfg))

	noStreet := order
	noStreet.Billing.Street = " "
	assert.True(t, errors.Is(adapter.ValidateCheckout(d, noStreet, cfg), adapter.ErrInvalidOrder))

	noCountry := order
	noCountry.Billing.Country = ""
	assert.True(t, errors.Is(adapter.ValidateCheckout(d, noCountry, cfg), adapter.ErrInvalidOrder))

	zero := order
	zero.Total = decimal.Zero
	assert.True(t, errors.Is(adapter.ValidateCheckout(d, zero, cfg), adapter.ErrInvalidOrder))

	err := adapter.ValidateCheckout(d, order, context.GatewayConfig{Credentials: map[string]string{"merchant_id": "  "}})
	assert.True(t, errors.Is(err, adapter.ErrMissingCredential))
	assert.Contains(t, err.Error(), "merchant_id")
}

func TestRegistry(t *testing.T) {
	a := mock.NewMockAdapter("b-gw")
	b := mock.NewMockAdapter("a-gw")
	r := adapter.NewRegistry(a, b)

	got, ok := r.Get("b-gw")
	assert.True(t, ok)
	assert.Same(t, a, got)
	_, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"a-gw", "b-gw"}, r.Names())

	assert.Panics(t, func() { adapter.NewRegistry(a, mock.NewMockAdapter("b-gw")) })
}
