package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_notifications_total",
		Help: "Gateway notifications handled, by gateway, terminal state and rejection kind.",
	}, []string{"gateway", "state", "kind"})

	handleDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notify_handle_duration_seconds",
		Help:    "Time spent handling one gateway notification.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway"})
)

// GetNotificationsTotal returns the notification outcome counter.
func GetNotificationsTotal() *prometheus.CounterVec {
	return notificationsTotal
}

// GetHandleDurationSeconds returns the handling latency histogram.
func GetHandleDurationSeconds() *prometheus.HistogramVec {
	return handleDurationSeconds
}
