// Package metrics provides Prometheus metrics for the grading service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Grading
	attempts          *prometheus.CounterVec
	signals           *prometheus.CounterVec
	tierOutcomes      *prometheus.CounterVec
	stageLatency      *prometheus.HistogramVec
	finalScore        prometheus.Histogram
	confidence        prometheus.Histogram
	integrityRisk     *prometheus.CounterVec
	reviewEscalations *prometheus.CounterVec
	curation          *prometheus.CounterVec

	// Background event queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	queueEnqueued prometheus.Counter
	queueDequeued prometheus.Counter
	queueRejected prometheus.Counter

	// Workers
	workerCount   prometheus.Gauge
	workerActive  prometheus.Gauge
	workerLatency *prometheus.HistogramVec
	workerErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "skillgrade",
		subsystem:        "grading",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	scoreBuckets := prometheus.LinearBuckets(10, 10, 10)

	m.attempts = m.counterVec("attempts_total", "Grading requests by outcome", "outcome")
	m.signals = m.counterVec("signals_total", "Signal availability per request", "signal", "status")
	m.tierOutcomes = m.counterVec("model_tier_outcomes_total", "Generative tier calls by outcome", "tier", "outcome")
	m.stageLatency = m.histogramVec("stage_latency_ms", "Latency of grading stages in milliseconds", m.histogramBuckets, "stage")
	m.finalScore = m.histogram("final_score", "Distribution of final scores", scoreBuckets)
	m.confidence = m.histogram("confidence", "Distribution of ensemble confidence", scoreBuckets)
	m.integrityRisk = m.counterVec("integrity_risk_total", "Integrity assessments by risk level", "risk")
	m.reviewEscalations = m.counterVec("review_escalations_total", "Attempts routed to human review by reason", "reason")
	m.curation = m.counterVec("corpus_curation_total", "Corpus curation decisions", "result")

	m.queueSize = m.gauge("queue_size", "Current number of pending background events")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the background event queue")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Background events enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Background events dequeued")
	m.queueRejected = m.counter("queue_rejected_total", "Background events dropped because the queue was full")

	m.workerCount = m.gauge("worker_count", "Configured background workers")
	m.workerActive = m.gauge("worker_active", "Background workers currently handling an event")
	m.workerLatency = m.histogramVec("worker_latency_ms", "Background event handling latency in milliseconds", m.histogramBuckets, "kind")
	m.workerErrors = m.counterVec("worker_errors_total", "Background event handler failures", "kind")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request duration in seconds",
		prometheus.DefBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// RecordAttempt counts a grading request outcome (scored, duplicate, invalid, ...).
func RecordAttempt(outcome string) { globalManager.attempts.WithLabelValues(outcome).Inc() }

// RecordSignal records whether a scoring signal was available.
func RecordSignal(signal string, available bool) {
	status := "unavailable"
	if available {
		status = "available"
	}
	globalManager.signals.WithLabelValues(signal, status).Inc()
}

// RecordTierOutcome counts a generative tier call.
func RecordTierOutcome(tier, outcome string) {
	globalManager.tierOutcomes.WithLabelValues(tier, outcome).Inc()
}

// RecordStageLatency observes the duration of a grading stage.
func RecordStageLatency(stage string, d time.Duration) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(ms(d))
}

// RecordScore observes the final score and confidence of a graded attempt.
func RecordScore(finalScore, confidence int) {
	globalManager.finalScore.Observe(float64(finalScore))
	globalManager.confidence.Observe(float64(confidence))
}

// RecordIntegrityRisk counts an integrity assessment.
func RecordIntegrityRisk(risk string) { globalManager.integrityRisk.WithLabelValues(risk).Inc() }

// RecordReviewEscalation counts one escalation reason.
func RecordReviewEscalation(reason string) {
	globalManager.reviewEscalations.WithLabelValues(reason).Inc()
}

// RecordCuration counts a corpus curation decision.
func RecordCuration(result string) { globalManager.curation.WithLabelValues(result).Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an accepted event.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a consumed event.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueRejected counts an event dropped under backpressure.
func RecordQueueRejected() { globalManager.queueRejected.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// AddWorkerActive adjusts the busy-worker gauge by delta.
func AddWorkerActive(delta int) { globalManager.workerActive.Add(float64(delta)) }

// RecordWorkerLatency observes handler latency for an event kind.
func RecordWorkerLatency(kind string, d time.Duration) {
	globalManager.workerLatency.WithLabelValues(kind).Observe(ms(d))
}

// RecordWorkerError counts a handler failure for an event kind.
func RecordWorkerError(kind string) { globalManager.workerErrors.WithLabelValues(kind).Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry { return customRegistry }
