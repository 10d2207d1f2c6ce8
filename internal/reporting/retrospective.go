// Package reporting summarises the payment attempt log.
package reporting

import (
	"sort"
	"time"

	"github.com/yourorg/gateway-notify/internal/orchestrator"
	"github.com/yourorg/gateway-notify/internal/payment"
)

// RetrospectiveReport summarizes notification handling over a set of attempts.
type RetrospectiveReport struct {
	TotalAttempts      int            `json:"total_attempts"`
	SuccessfulAttempts int            `json:"successful_attempts"`
	FailedAttempts     int            `json:"failed_attempts"`
	DuplicateDelivered int            `json:"duplicate_deliveries"` // successful attempts for an order already paid
	UnresolvedOrders   int            `json:"unresolved_orders"`    // attempts with no order reference
	PaidOrders         []string       `json:"paid_orders"`          // distinct, sorted
	ErrorBreakdown     map[string]int `json:"error_breakdown"`      // failure count per kind
	GatewayUsage       map[string]int `json:"gateway_usage"`
	DateFrom           time.Time      `json:"date_from"`
	DateTo             time.Time      `json:"date_to"`
	ProcessingDuration time.Duration  `json:"processing_duration"`
}

// SuccessRate returns successful attempts over total, or 0 for an empty report.
func (r *RetrospectiveReport) SuccessRate() float64 {
	if r.TotalAttempts == 0 {
		return 0
	}
	return float64(r.SuccessfulAttempts) / float64(r.TotalAttempts)
}

// RetrospectiveReporter generates retrospective reports from attempt logs.
type RetrospectiveReporter struct{}

// NewRetrospectiveReporter creates a new RetrospectiveReporter.
func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes attempts in any order and produces a report.
func (rr *RetrospectiveReporter) GenerateRetrospective(attempts []payment.Attempt) (*RetrospectiveReport, error) {
	report := &RetrospectiveReport{
		PaidOrders:     []string{},
		ErrorBreakdown: make(map[string]int),
		GatewayUsage:   make(map[string]int),
	}
	paid := make(map[string]struct{})

	for i, a := range attempts {
		report.TotalAttempts++

		if i == 0 || a.CreatedAt.Before(report.DateFrom) {
			report.DateFrom = a.CreatedAt
		}
		if i == 0 || a.CreatedAt.After(report.DateTo) {
			report.DateTo = a.CreatedAt
		}

		if a.Gateway != "" {
			report.GatewayUsage[a.Gateway]++
		}
		if a.OrderID == nil {
			report.UnresolvedOrders++
		}

		if !a.Success {
			report.FailedAttempts++
			if a.Kind != "" {
				report.ErrorBreakdown[a.Kind]++
			}
			continue
		}
		report.SuccessfulAttempts++
		if a.Message == orchestrator.MessageAlreadyPaid {
			report.DuplicateDelivered++
		}
		if ref := a.OrderRef(); ref != "" {
			paid[ref] = struct{}{}
		}
	}

	for id := range paid {
		report.PaidOrders = append(report.PaidOrders, id)
	}
	sort.Strings(report.PaidOrders)
	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)

	return report, nil
}
