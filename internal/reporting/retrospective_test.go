package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gateway-notify/internal/orchestrator"
	"github.com/yourorg/gateway-notify/internal/payment"
)

func ref(s string) *string { return &s }

func TestGenerateRetrospective_Empty(t *testing.T) {
	report, err := NewRetrospectiveReporter().GenerateRetrospective(nil)
	require.NoError(t, err)
	assert.Zero(t, report.TotalAttempts)
	assert.Empty(t, report.PaidOrders)
	assert.NotNil(t, report.ErrorBreakdown)
	assert.NotNil(t, report.GatewayUsage)
	assert.Zero(t, report.ProcessingDuration)
	assert.Zero(t, report.SuccessRate())
}

func TestGenerateRetrospective(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	attempts := []payment.Attempt{
		{OrderID: ref("1002"), Gateway: "eway", Success: false, Kind: "AmountMismatch", CreatedAt: base.Add(2 * time.Minute)},
		{OrderID: ref("1001"), Gateway: "custom", Success: true, Message: "Payment accepted", CreatedAt: base},
		{OrderID: ref("1001"), Gateway: "custom", Success: true, Message: orchestrator.MessageAlreadyPaid, CreatedAt: base.Add(time.Minute)},
		{Gateway: "custom", Success: false, Kind: "OrderNotFound", CreatedAt: base.Add(5 * time.Minute)},
		{OrderID: ref("1003"), Gateway: "worldpay", Success: false, Kind: "NotApproved", CreatedAt: base.Add(3 * time.Minute)},
		{OrderID: ref("1003"), Gateway: "worldpay", Success: true, Message: "Payment accepted", CreatedAt: base.Add(4 * time.Minute)},
	}

	report, err := NewRetrospectiveReporter().GenerateRetrospective(attempts)
	require.NoError(t, err)

	assert.Equal(t, 6, report.TotalAttempts)
	assert.Equal(t, 3, report.SuccessfulAttempts)
	assert.Equal(t, 3, report.FailedAttempts)
	assert.Equal(t, 1, report.DuplicateDelivered)
	assert.Equal(t, 1, report.UnresolvedOrders)
	assert.Equal(t, []string{"1001", "1003"}, report.PaidOrders)
	assert.Equal(t, map[string]int{"AmountMismatch": 1, "OrderNotFound": 1, "NotApproved": 1}, report.ErrorBreakdown)
	assert.Equal(t, map[string]int{"eway": 1, "custom": 3, "worldpay": 2}, report.GatewayUsage)
	assert.Equal(t, base, report.DateFrom)
	assert.Equal(t, base.Add(5*time.Minute), report.DateTo)
	assert.Equal(t, 5*time.Minute, report.ProcessingDuration)
	assert.InDelta(t, 0.5, report.SuccessRate(), 1e-9)
}
