// Package metrics holds the Prometheus collectors for imports, flow polling
// and inbound webhooks.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contact_sync"

// Metrics is the set of collectors shared by the service layers.
type Metrics struct {
	registry *prometheus.Registry

	ImportRuns      *prometheus.CounterVec
	ImportedRecords *prometheus.CounterVec
	SkippedRecords  *prometheus.CounterVec
	FlowPolls       *prometheus.CounterVec
	PollAttempts    *prometheus.HistogramVec
	WebhookEvents   *prometheus.CounterVec
}

// New registers every collector on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ImportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Total number of import runs by record kind and result.",
		}, []string{"kind", "result"}),
		ImportedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_records_total",
			Help:      "Total number of records upserted by imports.",
		}, []string{"kind"}),
		SkippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_records_total",
			Help:      "Total number of fetched records dropped for lacking an external id.",
		}, []string{"kind"}),
		FlowPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_polls_total",
			Help:      "Total number of flow-run polls by outcome.",
		}, []string{"outcome"}),
		PollAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "flow_poll_attempts",
			Help:      "Number of probe attempts a flow-run poll needed.",
			Buckets:   []float64{1, 2, 3, 5, 8, 12, 20},
		}, []string{"outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Total number of inbound contact webhook events by event and result.",
		}, []string{"event", "result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ImportRuns,
		m.ImportedRecords,
		m.SkippedRecords,
		m.FlowPolls,
		m.PollAttempts,
		m.WebhookEvents,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Result labels an outcome as "ok" or "error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
