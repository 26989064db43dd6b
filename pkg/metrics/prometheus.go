// Package metrics provides Prometheus metrics for the KAM service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Import pipeline
	imports        *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	importFailures *prometheus.CounterVec
	importLatency  prometheus.Histogram
	previewsActive prometheus.Gauge

	// Store
	collectionSize   *prometheus.GaugeVec
	storeMutations   *prometheus.CounterVec
	mutationLatency  prometheus.Histogram
	persistOutcomes  *prometheus.CounterVec
	persistLatency   prometheus.Histogram
	persistCoalesced prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	logins              *prometheus.CounterVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Live feed
	websocketClients  prometheus.Gauge
	websocketMessages prometheus.Counter
	changesDropped    prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kam",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.imports = m.counterVec("imports_total", "Import attempts by stage and result", "stage", "result")
	m.importRows = m.counterVec("import_rows_total", "Spreadsheet data rows seen by ingestion, by outcome", "outcome")
	m.importFailures = m.counterVec("import_failures_total", "Ingestion failures by validation kind", "kind")
	m.importLatency = m.histogram("import_latency_milliseconds", "Time spent validating one spreadsheet", m.histogramBuckets)
	m.previewsActive = m.gauge("import_previews_active", "Import previews waiting for confirmation")

	m.collectionSize = m.gaugeVec("collection_size", "Number of items held per collection", "collection")
	m.storeMutations = m.counterVec("store_mutations_total", "Store mutations by collection and action", "collection", "action")
	m.mutationLatency = m.histogram("store_mutation_latency_milliseconds", "Latency of one copy-on-write store mutation", m.histogramBuckets)
	m.persistOutcomes = m.counterVec("persist_total", "Collection saves by collection and result", "collection", "result")
	m.persistLatency = m.histogram("persist_latency_milliseconds", "Latency of one collection save", m.histogramBuckets)
	m.persistCoalesced = m.counter("persist_coalesced_total", "Persistence jobs skipped because a newer save already ran")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.logins = m.counterVec("logins_total", "Login attempts by result", "result")

	m.queueSize = m.gauge("queue_size", "Current size of the persistence queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum persistence queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of persistence jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of persistence jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueue attempts")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})

	m.workerCount = m.gauge("worker_count", "Number of persistence workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time for a worker to handle one job", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.websocketClients = m.gauge("websocket_clients", "Connected change-feed clients")
	m.websocketMessages = m.counter("websocket_messages_total", "Change messages written to clients")
	m.changesDropped = m.counter("changes_dropped_total", "Change events dropped because a subscriber was slow")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of requests that ended in an error", m.histogramBuckets, "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Import metrics.

// RecordImport counts one import attempt. stage is preview or confirm.
func RecordImport(stage, result string) {
	globalManager.imports.WithLabelValues(stage, result).Inc()
}

// RecordImportRows counts kept and dropped data rows of a successful ingestion.
func RecordImportRows(kept, dropped int) {
	globalManager.importRows.WithLabelValues("kept").Add(float64(kept))
	globalManager.importRows.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordImportFailure counts an ingestion failure of the given kind.
func RecordImportFailure(kind string) {
	globalManager.importFailures.WithLabelValues(kind).Inc()
}

// RecordImportLatency records validation time in milliseconds.
func RecordImportLatency(latencyMs float64) {
	globalManager.importLatency.Observe(latencyMs)
}

// UpdatePreviewsActive sets the number of pending previews.
func UpdatePreviewsActive(count int) {
	globalManager.previewsActive.Set(float64(count))
}

// Store metrics.

// UpdateCollectionSize sets the size gauge for a collection.
func UpdateCollectionSize(collection string, size int) {
	globalManager.collectionSize.WithLabelValues(collection).Set(float64(size))
}

// RecordStoreMutation counts a store mutation.
func RecordStoreMutation(collection, action string) {
	globalManager.storeMutations.WithLabelValues(collection, action).Inc()
}

// RecordStoreMutationLatency records mutation latency in milliseconds.
func RecordStoreMutationLatency(latencyMs float64) {
	globalManager.mutationLatency.Observe(latencyMs)
}

// RecordPersist counts a collection save outcome.
func RecordPersist(collection, result string) {
	globalManager.persistOutcomes.WithLabelValues(collection, result).Inc()
}

// RecordPersistLatency records save latency in milliseconds.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// RecordPersistCoalesced counts a skipped, already superseded save.
func RecordPersistCoalesced() {
	globalManager.persistCoalesced.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordLogin counts a login attempt by result (ok, invalid, limited).
func RecordLogin(result string) {
	globalManager.logins.WithLabelValues(result).Inc()
}

// Queue metrics.

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

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job handling time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Live feed metrics.

// UpdateWebsocketClients sets the number of connected clients.
func UpdateWebsocketClients(count int) {
	globalManager.websocketClients.Set(float64(count))
}

// RecordWebsocketMessage counts a message written to a client.
func RecordWebsocketMessage() {
	globalManager.websocketMessages.Inc()
}

// RecordChangeDropped counts a change event a slow subscriber missed.
func RecordChangeDropped() {
	globalManager.changesDropped.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed request.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
