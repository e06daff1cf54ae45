// Package metrics exposes Prometheus counters for render passes and exports.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors on their own registry so tests can create
// as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	renders     *prometheus.CounterVec
	rowsSkipped prometheus.Counter
	tasks       prometheus.Gauge
	exports     *prometheus.CounterVec
}

// Render pass outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeMissingFile = "missing_file"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronograma",
			Name:      "renders_total",
			Help:      "Render passes by outcome.",
		}, []string{"outcome"}),
		rowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cronograma",
			Name:      "rows_skipped_total",
			Help:      "Workbook rows that did not produce a task.",
		}),
		tasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cronograma",
			Name:      "tasks",
			Help:      "Tasks on the chart after the last render pass.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cronograma",
			Name:      "exports_total",
			Help:      "Exports by format and result.",
		}, []string{"format", "result"}),
	}
	m.registry.MustRegister(m.renders, m.rowsSkipped, m.tasks, m.exports)
	return m
}

// ObserveRender records one render pass.
func (m *Metrics) ObserveRender(outcome string, tasks, skipped int) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(outcome).Inc()
	m.rowsSkipped.Add(float64(skipped))
	if outcome == OutcomeOK {
		m.tasks.Set(float64(tasks))
	}
}

// ObserveExport records an export attempt for format (xlsx, ics, svg, png).
func (m *Metrics) ObserveExport(format string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(format, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
