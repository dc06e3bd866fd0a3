package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitpoint/fitpoint/server/internal/session"
)

const namespace = "fitpoint"

// Metrics holds all server metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline
	PipelineRuns *prometheus.CounterVec // by analysis status
	Inflections  prometheus.Counter
	EMWOutcomes  *prometheus.CounterVec // by EMW kind
	DroppedRows  *prometheus.CounterVec // by reason

	// Sessions
	SessionsActive  prometheus.Gauge
	SessionsEvicted prometheus.Counter

	// Transport
	APIRequests *prometheus.CounterVec // by route, method, status
	RateLimited prometheus.Counter
	WSClients   prometheus.Gauge

	// Alerts
	AlertsFired *prometheus.CounterVec // by rule, severity
}

// New registers every metric on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Analysis pipeline runs by resulting status.",
		}, []string{"status"}),
		Inflections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inflections_found_total",
			Help:      "Pipeline runs that found an inflection point.",
		}),
		EMWOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emw_outcomes_total",
			Help:      "FIT EMW calculations by outcome.",
		}, []string{"kind"}),
		DroppedRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Table rows excluded by the cleaner, by reason.",
		}, []string{"reason"}),

		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "FIT sessions currently held in memory.",
		}),
		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Sessions removed by the idle TTL.",
		}),

		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "REST API requests by route template, method and status code.",
		}, []string{"route", "method", "code"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients.",
		}),

		AlertsFired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts fired by rule and severity.",
		}, []string{"rule", "severity"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSession is a session.Listener that keeps the pipeline and session
// metrics current.
func (m *Metrics) ObserveSession(ev session.Event) {
	switch ev.Kind {
	case session.EventCreated:
		m.SessionsActive.Inc()
	case session.EventDeleted:
		m.SessionsActive.Dec()
	case session.EventEvicted:
		m.SessionsActive.Dec()
		m.SessionsEvicted.Inc()
	case session.EventAnalyzed:
		a := ev.Analysis
		if a == nil {
			return
		}
		m.PipelineRuns.WithLabelValues(a.Status).Inc()
		if a.Inflection.Found {
			m.Inflections.Inc()
		}
		m.EMWOutcomes.WithLabelValues(string(a.EMW.Kind)).Inc()
		if a.Clean.DroppedTime > 0 {
			m.DroppedRows.WithLabelValues("time").Add(float64(a.Clean.DroppedTime))
		}
		if a.Clean.DroppedPressure > 0 {
			m.DroppedRows.WithLabelValues("pressure").Add(float64(a.Clean.DroppedPressure))
		}
	}
}
