// Daemon metrics: exposes the daemon's internal counters over
// Prometheus (github.com/prometheus/client_golang), scraped by
// internal/httpapi's /metrics endpoint.
package daemon

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the daemon's counters/gauges in one registerable set:
// pre-registered collectors handed to callers instead of package globals.
type Metrics struct {
	NotesStored            prometheus.Counter
	ErrorsCaptured         prometheus.Counter
	ResolutionsSynthesized prometheus.Counter
	SearchQueries          prometheus.Counter
	ActiveSessions         prometheus.Gauge
	SessionsEvicted        prometheus.Counter
}

// NewMetrics constructs and registers the daemon's collectors against reg.
// Pass prometheus.NewRegistry() for an isolated registry per daemon
// instance (used in tests), or prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "notes_stored_total",
			Help:      "Notes persisted by the daemon, including auto-captured resolutions.",
		}),
		ErrorsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "errors_captured_total",
			Help:      "Failing commands observed by the correlator.",
		}),
		ResolutionsSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "resolutions_synthesized_total",
			Help:      "Resolution notes auto-synthesized after a failing run.",
		}),
		SearchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "search_queries_total",
			Help:      "Similar-solution searches issued by the correlator.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "active_sessions",
			Help:      "Shell sessions currently tracked by the daemon.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fukura",
			Subsystem: "daemon",
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by timeout or capacity eviction.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.NotesStored, m.ErrorsCaptured, m.ResolutionsSynthesized,
		m.SearchQueries, m.ActiveSessions, m.SessionsEvicted,
	} {
		reg.MustRegister(c)
	}
	return m
}
