// Package metrics exposes Prometheus collectors for implied volatility
// solving.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/contactkeval/option-analytics/internal/impliedvol"
)

const namespace = "option_analytics"

// Metrics groups the solver collectors. The zero value is not usable; build
// one with New.
type Metrics struct {
	Registry *prometheus.Registry

	// SolvesTotal counts solves by status and by method or reason.
	SolvesTotal *prometheus.CounterVec
	// Iterations observes the iteration count of converged solves.
	Iterations *prometheus.HistogramVec
	// BuildDuration observes the wall time of whole surface builds.
	BuildDuration prometheus.Histogram
}

// New registers fresh collectors on their own registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SolvesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "iv",
			Name:      "solves_total",
			Help:      "Implied volatility solves by outcome",
		}, []string{"status", "detail"}),
		Iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "iv",
			Name:      "iterations",
			Help:      "Iterations used by converged solves",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
		}, []string{"method"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "surface",
			Name:      "build_duration_seconds",
			Help:      "Surface build duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.Registry.MustRegister(m.SolvesTotal, m.Iterations, m.BuildDuration)
	return m
}

// ObserveSolve records one solver outcome. A nil receiver is a no-op.
func (m *Metrics) ObserveSolve(res impliedvol.Result) {
	if m == nil {
		return
	}
	if res.Converged() {
		m.SolvesTotal.WithLabelValues(string(res.Status), string(res.Method)).Inc()
		m.Iterations.WithLabelValues(string(res.Method)).Observe(float64(res.Iterations))
		return
	}
	m.SolvesTotal.WithLabelValues(string(res.Status), string(res.Reason)).Inc()
}

// ObserveBuild records the duration of a surface build in seconds.
func (m *Metrics) ObserveBuild(seconds float64) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(seconds)
}

// WriteFile writes the current values in the Prometheus text format, for
// the node exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
