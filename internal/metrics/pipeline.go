package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docintake/internal/domain"
)

// PipelineMetrics implements port.PipelineObserver on a private registry.
type PipelineMetrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runsInFlight   prometheus.Gauge
	fallbackTotal  prometheus.Counter
	extractorCalls *prometheus.CounterVec
	exceptions     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total pipeline runs by terminal status.",
		},
		[]string{"status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintake",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docintake",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of pipeline runs in progress.",
		},
	)
	fallbackTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "extraction",
			Name:      "fallback_total",
			Help:      "Extractions handed to the next strategy for low confidence.",
		},
	)
	extractorCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Name:      "extractor_calls_total",
			Help:      "Extractor calls by extractor and outcome.",
		},
		[]string{"extractor", "outcome"},
	)
	exceptions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Name:      "exceptions_created_total",
			Help:      "Exceptions created by category.",
		},
		[]string{"category"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, fallbackTotal, extractorCalls, exceptions, httpRequests, httpDuration)

	return &PipelineMetrics{
		registry:       registry,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		runsInFlight:   runsInFlight,
		fallbackTotal:  fallbackTotal,
		extractorCalls: extractorCalls,
		exceptions:     exceptions,
		httpRequests:   httpRequests,
		httpDuration:   httpDuration,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) RunStarted() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) RunFinished(status domain.DocumentStatus, elapsed time.Duration) {
	m.runsInFlight.Dec()
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.runDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) ExtractionFallback() {
	m.fallbackTotal.Inc()
}

func (m *PipelineMetrics) ExtractorCall(extractor, outcome string) {
	m.extractorCalls.WithLabelValues(extractor, outcome).Inc()
}

func (m *PipelineMetrics) ExceptionCreated(category domain.ExceptionCategory) {
	m.exceptions.WithLabelValues(string(category)).Inc()
}

// ObserveRequest records one HTTP request. path should be the route
// template, not the raw URL.
func (m *PipelineMetrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, path, statusClass(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RunStarted()                                      {}
func (Noop) RunFinished(domain.DocumentStatus, time.Duration) {}
func (Noop) ExtractionFallback()                              {}
func (Noop) ExtractorCall(string, string)                     {}
func (Noop) ExceptionCreated(domain.ExceptionCategory)        {}
