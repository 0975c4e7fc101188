// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tone_coach"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal  prometheus.Counter
	SessionsActive prometheus.Gauge
	SessionsFailed prometheus.Counter

	// Transcript metrics
	EventsReceived prometheus.Counter
	EventsRejected *prometheus.CounterVec
	Utterances     *prometheus.CounterVec

	// Scheduler metrics
	FlushAttempts *prometheus.CounterVec

	// Analysis metrics
	AnalysisLatency   *prometheus.HistogramVec
	AnalysisErrors    *prometheus.CounterVec
	AnalysisFallbacks prometheus.Counter
	StaleResults      prometheus.Counter
	Recaps            *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of live coaching sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently live coaching sessions",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of sessions that failed to start",
		}),

		EventsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Total number of transcription events received",
		}),
		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Total number of transcription events dropped by the gate",
		}, []string{"reason"}),
		Utterances: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of accepted utterances by side",
		}, []string{"side"}),

		FlushAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_attempts_total",
			Help:      "Total number of customer buffer flush attempts by outcome",
		}, []string{"outcome"}),

		AnalysisLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_seconds",
			Help:      "Latency of analysis and recap calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "kind"}),
		AnalysisErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      "Total number of failed analysis and recap calls",
		}, []string{"provider", "kind"}),
		AnalysisFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_fallbacks_total",
			Help:      "Total number of model responses replaced by the fallback result",
		}),
		StaleResults: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_stale_results_total",
			Help:      "Total number of analysis results discarded as stale",
		}),
		Recaps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recaps_total",
			Help:      "Total number of end-of-session recaps by outcome",
		}, []string{"outcome"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordSessionStart records a session going live.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a live session ending.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordSessionFailed records a session that could not start.
func (m *Metrics) RecordSessionFailed() {
	m.SessionsFailed.Inc()
}

// RecordEvent records a transcription event arriving.
func (m *Metrics) RecordEvent() {
	m.EventsReceived.Inc()
}

// RecordRejected records an event dropped by the gate.
func (m *Metrics) RecordRejected(reason string) {
	m.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordUtterance records an accepted utterance for a side.
func (m *Metrics) RecordUtterance(side string) {
	m.Utterances.WithLabelValues(side).Inc()
}

// RecordFlush records the outcome of a flush attempt.
func (m *Metrics) RecordFlush(outcome string) {
	m.FlushAttempts.WithLabelValues(outcome).Inc()
}

// RecordAnalysis records an analysis or recap call.
func (m *Metrics) RecordAnalysis(provider, kind string, err error, latencySeconds float64) {
	m.AnalysisLatency.WithLabelValues(provider, kind).Observe(latencySeconds)
	if err != nil {
		m.AnalysisErrors.WithLabelValues(provider, kind).Inc()
	}
}

// RecordFallback records a model response that could not be parsed.
func (m *Metrics) RecordFallback() {
	m.AnalysisFallbacks.Inc()
}

// RecordStale records a result discarded by the sequence guard.
func (m *Metrics) RecordStale() {
	m.StaleResults.Inc()
}

// RecordRecap records a recap attempt.
func (m *Metrics) RecordRecap(outcome string) {
	m.Recaps.WithLabelValues(outcome).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route string, code int, latencySeconds float64) {
	m.HTTPRequests.WithLabelValues(route, httpCode(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latencySeconds)
}

func httpCode(code int) string {
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
