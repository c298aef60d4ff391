// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_processed_total",
			Help: "Total number of notification events reaching a terminal state",
		},
		[]string{"status"},
	)

	DispatchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_dispatch_attempts_total",
			Help: "Total number of channel delivery attempts",
		},
		[]string{"channel", "result"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notify_batch_duration_seconds",
			Help: "Duration of one scheduler batch in seconds",
		},
		[]string{"outcome"},
	)

	EventsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_events_in_flight",
			Help: "Number of events currently being processed",
		},
	)
)
