package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every recording method is safe on a
// nil receiver, so components take an optional *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Driver metrics
	VersionDecisions *prometheus.CounterVec
	Installs         *prometheus.CounterVec
	InstallDuration  prometheus.Histogram

	// Session metrics
	SessionsActive prometheus.Gauge
	Launches       *prometheus.CounterVec
	Signals        *prometheus.CounterVec

	// Navigation metrics
	NavigationAttempts *prometheus.CounterVec
	NavigationDuration prometheus.Histogram

	// Response metrics
	Fetches *prometheus.CounterVec

	// Status server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a collector backed by its own registry so several
// instances can coexist in one process (tests, embedded use).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		VersionDecisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_driver_version_decisions_total",
				Help: "Driver version reconciliation outcomes",
			},
			[]string{"decision"},
		),
		Installs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_driver_installs_total",
				Help: "Driver install attempts by result",
			},
			[]string{"result"},
		),
		InstallDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "admitted_driver_install_duration_seconds",
				Help:    "Time spent downloading, extracting and verifying a driver",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),

		SessionsActive: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "admitted_sessions_active",
				Help: "Number of live browser sessions",
			},
		),
		Launches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_session_launches_total",
				Help: "Session launch attempts by result",
			},
			[]string{"result"},
		),
		Signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_termination_signals_total",
				Help: "Signals sent while terminating session processes",
			},
			[]string{"signal"},
		),

		NavigationAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_navigation_attempts_total",
				Help: "Page load attempts by outcome",
			},
			[]string{"outcome"},
		),
		NavigationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "admitted_navigation_duration_seconds",
				Help:    "Duration of a navigate call including retries",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 180},
			},
		),

		Fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_fetches_total",
				Help: "Responses built by transport and status class",
			},
			[]string{"transport", "class"},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admitted_http_requests_total",
				Help: "Status server requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "admitted_http_request_duration_seconds",
				Help:    "Status server request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordDecision counts a version reconciliation outcome.
func (m *Metrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.VersionDecisions.WithLabelValues(decision).Inc()
}

// RecordInstall counts a driver install and its duration.
func (m *Metrics) RecordInstall(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Installs.WithLabelValues(result(err)).Inc()
	m.InstallDuration.Observe(d.Seconds())
}

// RecordLaunch counts a launch; successful launches raise the active gauge.
func (m *Metrics) RecordLaunch(err error) {
	if m == nil {
		return
	}
	m.Launches.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.SessionsActive.Inc()
	}
}

// RecordSessionClosed lowers the active gauge.
func (m *Metrics) RecordSessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

// RecordSignal counts a termination step by name ("shutdown", "SIGTERM", "SIGKILL").
func (m *Metrics) RecordSignal(signal string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(signal).Inc()
}

// RecordNavigationAttempt counts one page load attempt ("succeeded", "retried", "failed").
func (m *Metrics) RecordNavigationAttempt(outcome string) {
	if m == nil {
		return
	}
	m.NavigationAttempts.WithLabelValues(outcome).Inc()
}

// RecordNavigation observes a whole navigate call.
func (m *Metrics) RecordNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

// RecordFetch counts a response by transport ("page", "client") and status class.
func (m *Metrics) RecordFetch(transport string, status int) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(transport, statusClass(status)).Inc()
}

// RecordHTTPRequest records a status server request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(status int) string {
	switch {
	case status <= 0:
		return "error"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
