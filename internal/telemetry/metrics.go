package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Domain metrics; HTTP request metrics live in the middleware package.
var (
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentask_store_operations_total",
			Help: "Task store calls by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	storeOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zentask_store_operation_duration_seconds",
			Help:    "Histogram of task store call durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zentask_ai_suggestions_total",
			Help: "AI suggestion calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(storeOpsTotal, storeOpDuration, suggestionsTotal)
}

// ObserveStore records one store call. outcome is "ok" or "error".
func ObserveStore(op string, err error, d time.Duration) {
	storeOpsTotal.WithLabelValues(op, outcome(err)).Inc()
	storeOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveSuggestion records one AI call. outcome is "ok", "empty" or an error kind.
func ObserveSuggestion(kind, outcome string) {
	suggestionsTotal.WithLabelValues(kind, outcome).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
