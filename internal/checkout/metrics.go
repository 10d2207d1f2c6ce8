package checkout

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_checkout_requests_total",
		Help: "Total number of checkout form build requests.",
	})

	checkoutBuildDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notify_checkout_build_duration_seconds",
		Help:    "Duration of checkout form builds.",
		Buckets: prometheus.DefBuckets,
	})
)

// GetCheckoutRequestsTotal returns the checkout request counter.
func GetCheckoutRequestsTotal() prometheus.Counter {
	return checkoutRequestsTotal
}

// GetCheckoutBuildDurationSeconds returns the checkout build histogram.
func GetCheckoutBuildDurationSeconds() prometheus.Histogram {
	return checkoutBuildDurationSeconds
}
