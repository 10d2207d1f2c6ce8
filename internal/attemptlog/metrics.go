package attemptlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_attempt_log_writes_total",
		Help: "Attempt log writes by sink and result (ok, error, skipped).",
	}, []string{"sink", "result"})

	attemptsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_attempt_log_dropped_total",
		Help: "Attempts that no sink could store.",
	})
)

// GetAttemptWritesTotal returns the per-sink write counter.
func GetAttemptWritesTotal() *prometheus.CounterVec {
	return attemptWritesTotal
}

// GetAttemptsDroppedTotal returns the dropped-attempt counter.
func GetAttemptsDroppedTotal() prometheus.Counter {
	return attemptsDroppedTotal
}
