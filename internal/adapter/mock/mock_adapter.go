package mock

import (
	"github.com/yourorg/gateway-notify/internal/adapter"
	"github.com/yourorg/gateway-notify/internal/context"
	"github.com/yourorg/gateway-notify/internal/payment"
)

// MockAdapter is a mock implementation of the GatewayAdapter interface for testing.
type MockAdapter struct {
	Name          string
	Desc          adapter.Descriptor
	MapFieldsFunc func(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error)
	Calls         int
}

// NewMockAdapter creates a new MockAdapter whose descriptor uses simple
// field names ("ref", "amount", "ok" == "yes", "msg").
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{
		Name: name,
		Desc: adapter.Descriptor{
			Name:                  name,
			OrderRefField:         "ref",
			AmountField:           "amount",
			ApprovalField:         "ok",
			MessageField:          "msg",
			TransactionField:      "txn",
			SuccessSentinel:       "yes",
			DefaultDeclineMessage: "mock decline",
			AmountUnit:            adapter.MajorUnits,
			LiveEndpoint:          "https://mock.invalid/pay",
			TestEndpoint:          "https://mock.invalid/test/pay",
			Ack:                   adapter.AckPlain,
		},
	}
}

// GetName implements the GatewayAdapter interface.
func (m *MockAdapter) GetName() string {
	return m.Name
}

// Descriptor implements the GatewayAdapter interface.
func (m *MockAdapter) Descriptor() adapter.Descriptor {
	return m.Desc
}

// MapFields calls MapFieldsFunc if defined, otherwise returns the order
// reference and amount only.
func (m *MockAdapter) MapFields(order payment.Order, cfg context.GatewayConfig, mode adapter.Mode) (*adapter.FieldSet, error) {
	m.Calls++
	if m.MapFieldsFunc != nil {
		return m.MapFieldsFunc(order, cfg, mode)
	}
	fs := adapter.NewFieldSet()
	fs.Set(m.Desc.OrderRefField, order.ID)
	fs.Set(m.Desc.AmountField, m.Desc.FormatAmount(order.Total))
	return fs, nil
}
