package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Resolution metrics
	Resolutions        *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	StepDuration       *prometheus.HistogramVec
	InjectionAttempts  prometheus.Counter
	CleanupFailures    *prometheus.CounterVec

	// Content server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	ProxyDownloads  *prometheus.CounterVec

	// Sandbox metrics
	PagesActive prometheus.Gauge

	// Snapshot for summaries - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for summaries
type MetricsSnapshot struct {
	TotalResolutions  int64
	FailedResolutions int64
	TotalRequests     int64
	TotalErrors       int64
	CleanupFailures   int64
	TotalDuration     float64 // sum of all resolution durations
}

// NewMetrics creates a metrics collector backed by its own registry.
// Separate collectors never collide, so tests and concurrent resolvers
// can each hold one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_resolutions_total",
				Help: "Total number of composition resolutions",
			},
			[]string{"entry_point", "outcome"},
		),
		ResolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_resolution_duration_seconds",
				Help:    "End-to-end resolution duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"entry_point"},
		),
		StepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_step_duration_seconds",
				Help:    "Duration of individual resolution steps in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"step"},
		),
		InjectionAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "composer_injection_attempts_total",
				Help: "Total number of environment injection attempts, retries included",
			},
		),
		CleanupFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_cleanup_failures_total",
				Help: "Total number of cleanup actions that reported an error",
			},
			[]string{"action"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_http_requests_total",
				Help: "Total number of content server requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_http_request_duration_seconds",
				Help:    "Content server request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composer_http_response_size_bytes",
				Help:    "Content server response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ProxyDownloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "composer_proxy_downloads_total",
				Help: "Total number of assets fetched through the proxy route",
			},
			[]string{"status"},
		),

		PagesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "composer_sandbox_pages_active",
				Help: "Number of open sandbox pages",
			},
		),
	}
}

// Registry exposes the private registry for the /metrics route.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordResolution records the outcome of one resolution
func (m *Metrics) RecordResolution(entryPoint, outcome string, duration time.Duration) {
	m.Resolutions.WithLabelValues(entryPoint, outcome).Inc()
	m.ResolutionDuration.WithLabelValues(entryPoint).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalResolutions++
	m.snapshot.TotalDuration += duration.Seconds()
	if outcome != "success" {
		m.snapshot.FailedResolutions++
	}
	m.mu.Unlock()
}

// RecordStep records how long a named resolution step took
func (m *Metrics) RecordStep(step string, duration time.Duration) {
	m.StepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// IncInjectionAttempts counts one injection attempt
func (m *Metrics) IncInjectionAttempts() {
	m.InjectionAttempts.Inc()
}

// RecordCleanupFailure counts a cleanup action that returned an error
func (m *Metrics) RecordCleanupFailure(action string) {
	m.CleanupFailures.WithLabelValues(action).Inc()
	m.mu.Lock()
	m.snapshot.CleanupFailures++
	m.mu.Unlock()
}

// RecordHTTPRequest records a content server request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordProxyDownload counts a proxied asset fetch
func (m *Metrics) RecordProxyDownload(status string) {
	m.ProxyDownloads.WithLabelValues(status).Inc()
}

// IncPagesActive increments open pages
func (m *Metrics) IncPagesActive() {
	m.PagesActive.Inc()
}

// DecPagesActive decrements open pages
func (m *Metrics) DecPagesActive() {
	m.PagesActive.Dec()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
