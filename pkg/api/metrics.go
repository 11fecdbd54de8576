package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// isamCollector implements prometheus.Collector, reading store and log
// buffer state on each scrape.
type isamCollector struct {
	srv *Server

	// Snapshot store
	scopeLines    *prometheus.Desc
	scopeHistory  *prometheus.Desc
	scopeModified *prometheus.Desc

	// Log buffer
	logEventsBuffered *prometheus.Desc
	logEventsTotal    *prometheus.Desc

	uptime *prometheus.Desc
}

func newCollector(srv *Server) *isamCollector {
	return &isamCollector{
		srv: srv,

		scopeLines: prometheus.NewDesc(
			"isam_scope_active_lines",
			"Flattened lines in the active snapshot of a scope.",
			[]string{"scope"}, nil,
		),
		scopeHistory: prometheus.NewDesc(
			"isam_scope_history_entries",
			"Snapshots kept in the history of a scope.",
			[]string{"scope"}, nil,
		),
		scopeModified: prometheus.NewDesc(
			"isam_scope_modified",
			"1 if the scope candidate has uncommitted changes.",
			[]string{"scope"}, nil,
		),
		logEventsBuffered: prometheus.NewDesc(
			"isam_log_events_buffered",
			"Log records held in the event buffer.",
			nil, nil,
		),
		logEventsTotal: prometheus.NewDesc(
			"isam_log_events_total",
			"Log records added to the event buffer.",
			nil, nil,
		),
		uptime: prometheus.NewDesc(
			"isam_api_uptime_seconds",
			"Seconds since the API server was created.",
			nil, nil,
		),
	}
}

func (c *isamCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.scopeLines
	ch <- c.scopeHistory
	ch <- c.scopeModified
	ch <- c.logEventsBuffered
	ch <- c.logEventsTotal
	ch <- c.uptime
}

func (c *isamCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue,
		time.Since(c.srv.startTime).Seconds())

	c.collectScopes(ch)
	c.collectLogBuffer(ch)
}

func (c *isamCollector) collectScopes(ch chan<- prometheus.Metric) {
	store := c.srv.store
	if store == nil {
		return
	}
	for _, scope := range store.Scopes() {
		if active, err := store.Active(scope); err == nil {
			ch <- prometheus.MustNewConstMetric(c.scopeLines, prometheus.GaugeValue,
				float64(len(active.Lines)), scope)
		}
		if hist, err := store.History(scope); err == nil {
			ch <- prometheus.MustNewConstMetric(c.scopeHistory, prometheus.GaugeValue,
				float64(len(hist)), scope)
		}
		modified := 0.0
		if store.IsDirty(scope) {
			modified = 1
		}
		ch <- prometheus.MustNewConstMetric(c.scopeModified, prometheus.GaugeValue, modified, scope)
	}
}

func (c *isamCollector) collectLogBuffer(ch chan<- prometheus.Metric) {
	buf := c.srv.eventBuf
	if buf == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.logEventsBuffered, prometheus.GaugeValue, float64(buf.Len()))
	ch <- prometheus.MustNewConstMetric(c.logEventsTotal, prometheus.CounterValue, float64(buf.Seq()))
}
