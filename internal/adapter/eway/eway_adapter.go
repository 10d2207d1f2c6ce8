// Package eway implements the eWAY Australia shared payment page.
package eway

import (
	"strings"

	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

const (
	gatewayName    = "eway"
	liveURL        = "https://www.eway.com.au/gateway/payment.asp"
	testURL        = "https://www.eway.com.au/gateway/testpayment.asp"
	credCustomerID = "customer_id"
)

var descriptor = adapter.Descriptor{
	Name:                  gatewayName,
	OrderRefField:         "ewayTrxnNumber",
	AmountField:           "ewayReturnAmount",
	ApprovalField:         "ewayTrxnStatus",
	MessageField:          "ewayTrxnError",
	TransactionField:      "ewayTrxnReference",
	SuccessSentinel:       "True",
	DefaultDeclineMessage: "Transaction declined by eWAY",
	AmountUnit:            adapter.MinorUnits,
	LiveEndpoint:          liveURL,
	TestEndpoint:          testURL,
	RequiredCredentials:   []string{credCustomerID},
	Ack:                   adapter.AckRedirect,
}

// EwayAdapter implements the GatewayAdapter interface for eWAY Australia.
type EwayAdapter struct {
	urls adapter.CallbackURLs
}

// NewEwayAdapter creates a new EwayAdapter.
func NewEwayAdapter(urls adapter.CallbackURLs) *EwayAdapter {
	return &EwayAdapter{urls: urls}
}

// GetName returns the name of the gateway.
func (e *EwayAdapter) GetName() string {
	return gatewayName
}

// Descriptor returns the eWAY notification mapping.
func (e *EwayAdapter) Descriptor() adapter.Descriptor {
	return descriptor
}

// MapFields builds the shared payment page fields. eWAY takes the amount in
// cents and a single address field, so both street lines are folded into it
// together with city and state.
func (e *EwayAdapter) MapFields(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error) {
	if err := adapter.ValidateCheckout(descriptor, order, cfg); err != nil {
		return nil, err
	}

	line1, line2 := adapter.SplitStreet(order.Billing.Street)
	var address []string
	for _, part := range []string{line1, line2, order.Billing.City, order.Billing.Region} {
		if part != "" {
			address = append(address, part)
		}
	}

	fs := adapter.NewFieldSet()
	fs.Set("ewayCustomerID", cfg.GetCredential(credCustomerID))
	fs.Set("ewayTotalAmount", descriptor.FormatAmount(order.Total))
	fs.Set("ewayCustomerFirstName", order.Billing.FirstName)
	fs.Set("ewayCustomerLastName", order.Billing.LastName)
	fs.SetIfNotEmpty("ewayCustomerEmail", order.Email)
	fs.Set("ewayCustomerAddress", strings.Join(address, ", "))
	fs.Set("ewayCustomerPostcode", order.Billing.PostalCode)
	fs.SetIfNotEmpty("ewayCustomerInvoiceDescription", cfg.Description)
	fs.Set("ewayCustomerInvoiceRef", order.ID)
	fs.Set("ewayTrxnNumber", order.ID)
	fs.Set("ewayURL", e.urls.Notify(gatewayName, mode))
	fs.SetIfNotEmpty("ewaySiteTitle", cfg.Description)
	return fs, nil
}
