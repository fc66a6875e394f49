package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the command pipeline
type Metrics struct {
	CommandsProcessed  *prometheus.CounterVec
	CommandLatency     prometheus.Histogram
	CommandConfidence  prometheus.Histogram
	ShortcutExpansions prometheus.Counter
}

// InitMetrics initializes the Prometheus metrics. Call once at startup;
// promauto registers on the default registry.
func InitMetrics() *Metrics {
	return &Metrics{
		CommandsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "parcelvoice_commands_processed_total",
			Help: "Total number of commands processed by type and outcome",
		}, []string{"command_type", "status"}),

		CommandLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "parcelvoice_command_duration_seconds",
			Help:    "End-to-end command pipeline latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		CommandConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "parcelvoice_command_confidence_score",
			Help:    "Confidence score distribution of classified commands",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),

		ShortcutExpansions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "parcelvoice_shortcut_expansions_total",
			Help: "Total number of commands changed by shortcut expansion",
		}),
	}
}
