// Package metrics provides Prometheus metrics for the trainerscope service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the trainerscope service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Submission metrics
	assessmentsAccepted  prometheus.Counter
	assessmentsDuplicate prometheus.Counter
	assessmentsRejected  *prometheus.CounterVec

	// Gamification metrics
	activitiesProcessed *prometheus.CounterVec
	activitiesInline    prometheus.Counter
	xpAwarded           prometheus.Counter
	levelUps            prometheus.Counter
	badgesAwarded       *prometheus.CounterVec

	// Analytics metrics
	alertsGenerated  *prometheus.CounterVec
	analyticsLatency *prometheus.HistogramVec

	// Store metrics
	storeLatency *prometheus.HistogramVec

	// Leaderboard metrics
	leaderboardSize    prometheus.Gauge
	leaderboardUpdates prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trainerscope",
		subsystem:        "",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.assessmentsAccepted = m.counter("assessments_accepted_total", "Assessments stored and queued for gamification")
	m.assessmentsDuplicate = m.counter("assessments_duplicate_total", "Assessments rejected as duplicates of a seen id")
	m.assessmentsRejected = m.counterVec("assessments_rejected_total", "Assessments rejected before storage", "reason")

	m.activitiesProcessed = m.counterVec("activities_processed_total", "Gamification activities applied", "type")
	m.activitiesInline = m.counter("activities_inline_total", "Activities applied on the request path because the queue was full")
	m.xpAwarded = m.counter("xp_awarded_total", "Experience points awarded")
	m.levelUps = m.counter("level_ups_total", "Level increases across all users")
	m.badgesAwarded = m.counterVec("badges_awarded_total", "Badges newly awarded", "badge")

	m.alertsGenerated = m.counterVec("alerts_generated_total", "Alerts produced by the trend detector", "type", "severity")
	m.analyticsLatency = m.histogramVec("analytics_latency_milliseconds", "Latency of analytics computations", "operation")

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Latency of store operations", "operation")

	m.leaderboardSize = m.gauge("leaderboard_users", "Users ranked on the XP leaderboard")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "XP totals pushed to the leaderboard")

	m.queueSize = m.gauge("queue_size", "Current size of the activity queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the activity queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Activities enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Activities dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts that failed")

	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing an activity")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time spent applying one activity")
	m.workerErrors = m.counter("worker_errors_total", "Activities that failed to apply")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// RecordAssessmentAccepted increments the accepted submissions counter.
func RecordAssessmentAccepted() {
	globalManager.assessmentsAccepted.Inc()
}

// RecordAssessmentDuplicate increments the duplicate submissions counter.
func RecordAssessmentDuplicate() {
	globalManager.assessmentsDuplicate.Inc()
}

// RecordAssessmentRejected counts a submission rejected for reason.
func RecordAssessmentRejected(reason string) {
	globalManager.assessmentsRejected.WithLabelValues(reason).Inc()
}

// RecordActivityProcessed counts an applied activity of the given type.
func RecordActivityProcessed(activityType string) {
	globalManager.activitiesProcessed.WithLabelValues(activityType).Inc()
}

// RecordActivityInline counts an activity applied without the queue.
func RecordActivityInline() {
	globalManager.activitiesInline.Inc()
}

// RecordXPAwarded adds xp to the awarded total.
func RecordXPAwarded(xp int64) {
	if xp > 0 {
		globalManager.xpAwarded.Add(float64(xp))
	}
}

// RecordLevelUp increments the level up counter.
func RecordLevelUp() {
	globalManager.levelUps.Inc()
}

// RecordBadgeAwarded counts a newly awarded badge.
func RecordBadgeAwarded(badge string) {
	globalManager.badgesAwarded.WithLabelValues(badge).Inc()
}

// RecordAlert counts a generated alert.
func RecordAlert(alertType, severity string) {
	globalManager.alertsGenerated.WithLabelValues(alertType, severity).Inc()
}

// RecordAnalyticsLatency records the duration of an analytics operation.
func RecordAnalyticsLatency(operation string, latencyMs float64) {
	globalManager.analyticsLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreLatency records the duration of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateLeaderboardSize sets the number of ranked users.
func UpdateLeaderboardSize(count int) {
	globalManager.leaderboardSize.Set(float64(count))
}

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
