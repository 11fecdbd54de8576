// Package metrics holds the Prometheus instruments for flattening and facts
// gathering. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

// Metrics holds all instruments registered on an isolated registry.
type Metrics struct {
	registry *prometheus.Registry

	// Flatten metrics, by strategy
	LinesRead     *prometheus.CounterVec
	LinesEmitted  *prometheus.CounterVec
	LinesSkipped  *prometheus.CounterVec
	TokensDropped *prometheus.CounterVec

	// Gather metrics, by resource
	GatherDuration *prometheus.HistogramVec
	GatherErrors   *prometheus.CounterVec
}

// New creates the instruments on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		LinesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isam_flatten_lines_read_total",
				Help: "Input lines read by the flatteners.",
			},
			[]string{"strategy"},
		),
		LinesEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isam_flatten_lines_emitted_total",
				Help: "Canonical lines emitted by the flatteners.",
			},
			[]string{"strategy"},
		),
		LinesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isam_flatten_lines_skipped_total",
				Help: "Input lines that produced no output.",
			},
			[]string{"strategy"},
		),
		TokensDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isam_flatten_tokens_dropped_total",
				Help: "Unpaired trailing tokens dropped by the line flattener.",
			},
			[]string{"strategy"},
		),
		GatherDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isam_facts_gather_seconds",
				Help:    "Time taken to fetch, flatten and parse one resource.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"resource"},
		),
		GatherErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isam_facts_gather_errors_total",
				Help: "Failed resource gathers.",
			},
			[]string{"resource"},
		),
	}
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFlatten records the line accounting of one flatten run.
func (m *Metrics) ObserveFlatten(strategy flatten.Strategy, st flatten.Stats) {
	if m == nil {
		return
	}
	s := string(strategy)
	m.LinesRead.WithLabelValues(s).Add(float64(st.Read))
	m.LinesEmitted.WithLabelValues(s).Add(float64(st.Emitted))
	m.LinesSkipped.WithLabelValues(s).Add(float64(st.Skipped))
	m.TokensDropped.WithLabelValues(s).Add(float64(st.Dropped))
}

// ObserveGather records the duration and outcome of one resource gather.
func (m *Metrics) ObserveGather(resource string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.GatherDuration.WithLabelValues(resource).Observe(d.Seconds())
	if err != nil {
		m.GatherErrors.WithLabelValues(resource).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
