// Package metrics provides Prometheus metrics for the local rank indicator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Manager owns every Prometheus collector used by the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Indicator
	triggers         *prometheus.CounterVec
	applies          prometheus.Counter
	staleApplies     prometheus.Counter
	disposedApplies  prometheus.Counter
	activeIndicators prometheus.Gauge
	subscriptions    prometheus.Gauge
	queryLatency     prometheus.Histogram
	queryResults     *prometheus.CounterVec
	presenceFlips    prometheus.Counter

	// Score store
	storeRecords       prometheus.Gauge
	storeMutations     *prometheus.CounterVec
	storeUpdateLatency prometheus.Histogram

	// Scheduler
	schedulerQueueDepth  prometheus.Gauge
	schedulerTickLatency prometheus.Histogram
	schedulerTasksRun    prometheus.Counter
	schedulerCancelled   prometheus.Counter
	schedulerRejected    prometheus.Counter

	// Event bus
	eventsPublished *prometheus.CounterVec
	publishErrors   prometheus.Counter
	eventsConsumed  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "localrank",
		subsystem:        "client",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval returns how often gauges sampled from runtime state should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.triggers = m.counterVec("indicator_triggers_total", "Recomputations triggered, by source", "source")
	m.applies = m.counter("indicator_applies_total", "Scheduled rank applies that wrote the displayed rank")
	m.staleApplies = m.counter("indicator_stale_applies_total", "Scheduled applies skipped because a newer trigger superseded them")
	m.disposedApplies = m.counter("indicator_disposed_applies_total", "Scheduled applies skipped because the indicator was disposed")
	m.activeIndicators = m.gauge("indicator_active", "Indicators currently activated")
	m.subscriptions = m.gauge("indicator_subscriptions", "Listener registrations held by indicators")
	m.queryLatency = m.histogram("query_latency_milliseconds", "Best score query latency in milliseconds")
	m.queryResults = m.counterVec("query_results_total", "Best score query outcomes", "outcome")
	m.presenceFlips = m.counter("indicator_presence_changes_total", "Times an indicator's presence changed after an apply")

	m.storeRecords = m.gauge("store_records", "Score records held in the store, including pending deletion")
	m.storeMutations = m.counterVec("store_mutations_total", "Score store mutations, by operation", "op")
	m.storeUpdateLatency = m.histogram("store_update_latency_milliseconds", "Score store write latency in milliseconds")

	m.schedulerQueueDepth = m.gauge("scheduler_queue_depth", "Delegates waiting for the next tick")
	m.schedulerTickLatency = m.histogram("scheduler_tick_latency_milliseconds", "Time spent running one tick in milliseconds")
	m.schedulerTasksRun = m.counter("scheduler_tasks_run_total", "Delegates executed by the scheduler")
	m.schedulerCancelled = m.counter("scheduler_tasks_cancelled_total", "Delegates skipped because they were cancelled")
	m.schedulerRejected = m.counter("scheduler_tasks_rejected_total", "Delegates rejected because the scheduler was full or stopped")

	m.eventsPublished = m.counterVec("events_published_total", "Score events published to the bus, by topic", "topic")
	m.publishErrors = m.counter("events_publish_errors_total", "Score events that failed to publish")
	m.eventsConsumed = m.counterVec("events_consumed_total", "Score events consumed by the activity feed, by topic", "topic")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordTrigger counts a recomputation trigger from source.
func RecordTrigger(source string) { globalManager.triggers.WithLabelValues(source).Inc() }

// RecordApply counts an apply that wrote the displayed rank.
func RecordApply() { globalManager.applies.Inc() }

// RecordStaleApply counts an apply superseded by a newer trigger.
func RecordStaleApply() { globalManager.staleApplies.Inc() }

// RecordDisposedApply counts an apply that ran after disposal.
func RecordDisposedApply() { globalManager.disposedApplies.Inc() }

// RecordPresenceChange counts a presence flip.
func RecordPresenceChange() { globalManager.presenceFlips.Inc() }

// AddActiveIndicators adjusts the active indicator gauge by delta.
func AddActiveIndicators(delta int) { globalManager.activeIndicators.Add(float64(delta)) }

// AddSubscriptions adjusts the subscription gauge by delta.
func AddSubscriptions(delta int) { globalManager.subscriptions.Add(float64(delta)) }

// RecordQueryLatency records best score query latency in milliseconds.
func RecordQueryLatency(ms float64) { globalManager.queryLatency.Observe(ms) }

// RecordQueryResult counts a query outcome ("found" or "absent").
func RecordQueryResult(outcome string) { globalManager.queryResults.WithLabelValues(outcome).Inc() }

// UpdateStoreRecords sets the number of stored score records.
func UpdateStoreRecords(n int) { globalManager.storeRecords.Set(float64(n)) }

// RecordStoreMutation counts a store mutation by op.
func RecordStoreMutation(op string) { globalManager.storeMutations.WithLabelValues(op).Inc() }

// RecordStoreUpdateLatency records store write latency in milliseconds.
func RecordStoreUpdateLatency(ms float64) { globalManager.storeUpdateLatency.Observe(ms) }

// UpdateSchedulerQueueDepth sets the number of queued delegates.
func UpdateSchedulerQueueDepth(n int) { globalManager.schedulerQueueDepth.Set(float64(n)) }

// RecordSchedulerTick records the duration of one tick in milliseconds.
func RecordSchedulerTick(ms float64) { globalManager.schedulerTickLatency.Observe(ms) }

// RecordSchedulerTaskRun counts an executed delegate.
func RecordSchedulerTaskRun() { globalManager.schedulerTasksRun.Inc() }

// RecordSchedulerTaskCancelled counts a skipped cancelled delegate.
func RecordSchedulerTaskCancelled() { globalManager.schedulerCancelled.Inc() }

// RecordSchedulerTaskRejected counts a delegate that could not be queued.
func RecordSchedulerTaskRejected() { globalManager.schedulerRejected.Inc() }

// RecordEventPublished counts a published bus message.
func RecordEventPublished(topic string) { globalManager.eventsPublished.WithLabelValues(topic).Inc() }

// RecordPublishError counts a failed publish.
func RecordPublishError() { globalManager.publishErrors.Inc() }

// RecordEventConsumed counts a score event handled by a bus consumer.
func RecordEventConsumed(topic string) { globalManager.eventsConsumed.WithLabelValues(topic).Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent counts an error raised inside a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
