// Package metrics collects Prometheus instrumentation for the slip pipeline.
//
// Counters live on a private registry so multiple instances can coexist in
// tests; the daemon exposes the registry at GET /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters and their registry.
type Metrics struct {
	registry *prometheus.Registry

	// SlipsPrinted counts slips that reached the printer, by category and
	// trigger source.
	SlipsPrinted *prometheus.CounterVec
	// GenerationFailures counts completion calls that failed.
	GenerationFailures prometheus.Counter
	// PrintFailures counts device writes that failed after a successful
	// generation.
	PrintFailures prometheus.Counter
	// TriggersRejected counts triggers refused because a slip was in flight.
	TriggersRejected prometheus.Counter
	// StageDuration observes how long the generate and print stages take.
	StageDuration *prometheus.HistogramVec
}

// New creates and registers the pipeline metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SlipsPrinted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gritd_slips_printed_total",
			Help: "Slips successfully written to the printer.",
		}, []string{"category", "source"}),
		GenerationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gritd_generation_failures_total",
			Help: "Completion requests that failed or returned nothing printable.",
		}),
		PrintFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gritd_print_failures_total",
			Help: "Printer writes that failed after a successful generation.",
		}),
		TriggersRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gritd_triggers_rejected_total",
			Help: "Triggers rejected because a slip was already in flight.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gritd_stage_duration_seconds",
			Help:    "Duration of the generate and print pipeline stages.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"stage"}),
	}

	m.registry.MustRegister(
		m.SlipsPrinted,
		m.GenerationFailures,
		m.PrintFailures,
		m.TriggersRejected,
		m.StageDuration,
	)
	return m
}

// Handler returns the Prometheus exposition handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
