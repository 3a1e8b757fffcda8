// Package metrics exports experiment and LLM metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter collects experiment events and LLM call statistics.
// It implements experiment.Recorder so a Store can stream assignment and
// outcome events into it.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Experiment metrics
	impressions    *prometheus.CounterVec
	successes      *prometheus.CounterVec
	feedbackScores *prometheus.HistogramVec
	activeExps     prometheus.Gauge

	// LLM call metrics
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec

	// Suggestion cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.impressions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "experiment",
			Name:      "impressions_total",
			Help:      "Total number of variant assignments",
		},
		[]string{"experiment", "variant"},
	)

	e.successes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "experiment",
			Name:      "successes_total",
			Help:      "Total number of variant conversions",
		},
		[]string{"experiment", "variant"},
	)

	e.feedbackScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "synthscribe",
			Subsystem: "experiment",
			Name:      "feedback_score",
			Help:      "Distribution of user feedback scores",
			Buckets:   []float64{1, 2, 3, 4, 5},
		},
		[]string{"experiment", "variant"},
	)

	e.activeExps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "synthscribe",
			Subsystem: "experiment",
			Name:      "active",
			Help:      "Number of experiments currently in the active state",
		},
	)

	e.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "ai",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"model", "provider", "status"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "ai",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens consumed",
		},
		[]string{"model", "token_type"},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "synthscribe",
			Subsystem: "ai",
			Name:      "llm_latency_seconds",
			Help:      "LLM request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"model", "provider"},
	)

	e.cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "ai",
			Name:      "suggestion_cache_hits_total",
			Help:      "Total number of suggestion cache hits",
		},
	)

	e.cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "synthscribe",
			Subsystem: "ai",
			Name:      "suggestion_cache_misses_total",
			Help:      "Total number of suggestion cache misses",
		},
	)

	registry.MustRegister(
		e.impressions,
		e.successes,
		e.feedbackScores,
		e.activeExps,
		e.llmRequests,
		e.llmTokens,
		e.llmLatency,
		e.cacheHits,
		e.cacheMisses,
	)

	return e
}

// ObserveImpression counts a variant assignment.
func (e *PrometheusExporter) ObserveImpression(experiment, variant string) {
	e.impressions.WithLabelValues(experiment, variant).Inc()
}

// ObserveSuccess counts a variant conversion.
func (e *PrometheusExporter) ObserveSuccess(experiment, variant string) {
	e.successes.WithLabelValues(experiment, variant).Inc()
}

// ObserveFeedback records a feedback score.
func (e *PrometheusExporter) ObserveFeedback(experiment, variant string, score float64) {
	e.feedbackScores.WithLabelValues(experiment, variant).Observe(score)
}

// SetActiveExperiments sets the active experiment count.
func (e *PrometheusExporter) SetActiveExperiments(count int) {
	e.activeExps.Set(float64(count))
}

// RecordLLMCall records a completed LLM request.
func (e *PrometheusExporter) RecordLLMCall(model, provider string, latency time.Duration, promptTokens, completionTokens int, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	e.llmRequests.WithLabelValues(model, provider, status).Inc()
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
	if promptTokens > 0 {
		e.llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		e.llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordCacheHit counts a suggestion cache hit.
func (e *PrometheusExporter) RecordCacheHit() {
	e.cacheHits.Inc()
}

// RecordCacheMiss counts a suggestion cache miss.
func (e *PrometheusExporter) RecordCacheMiss() {
	e.cacheMisses.Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// Registry returns the underlying Prometheus registry.
func (e *PrometheusExporter) Registry() *prometheus.Registry {
	return e.registry
}
