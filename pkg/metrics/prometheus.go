// Package metrics provides Prometheus metrics for the datemaker orchestrator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the orchestrator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scheduler
	schedulerTicks     prometheus.Counter
	schedulerDueEvents *prometheus.CounterVec

	// Workers, labelled by kind (confirmation, dating)
	workersStarted  *prometheus.CounterVec
	workersFinished *prometheus.CounterVec
	workersFailed   *prometheus.CounterVec
	workersActive   *prometheus.GaugeVec
	workerDuration  *prometheus.HistogramVec

	// Event lifecycle
	eventStateTransitions *prometheus.CounterVec
	roundsCompleted       prometheus.Counter
	groupsFinished        prometheus.Counter

	// Matchmaking
	pairingLatency      prometheus.Histogram
	pairingParticipants *prometheus.CounterVec
	pairingGroups       prometheus.Counter

	// Messaging
	commandsPublished *prometheus.CounterVec
	commandErrors     *prometheus.CounterVec

	// In-memory queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Command consumers draining the in-memory queue
	consumerHandled      *prometheus.CounterVec
	consumerErrors       *prometheus.CounterVec
	consumerLatency      prometheus.Histogram
	consumerActive       prometheus.Gauge
	consumerMessagesRate prometheus.Gauge

	// Meeting provider
	providerCalls  *prometheus.CounterVec
	providerErrors *prometheus.CounterVec

	// Persistence
	repositoryQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "datemaker",
		subsystem:        "orchestrator",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.schedulerTicks = m.counter("scheduler_ticks_total", "Total number of scheduler passes over the event table")
	m.schedulerDueEvents = m.counterVec("scheduler_due_events_total", "Events found due for a worker, by worker kind", "kind")

	m.workersStarted = m.counterVec("workers_started_total", "Workers spawned by the scheduler", "kind")
	m.workersFinished = m.counterVec("workers_finished_total", "Workers that returned without error", "kind")
	m.workersFailed = m.counterVec("workers_failed_total", "Workers that returned an error or panicked", "kind")
	m.workersActive = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("workers_active"),
		Help:        "Workers currently running",
		ConstLabels: m.customLabels,
	}, []string{"kind"})
	m.workerDuration = m.histogramVec("worker_duration_seconds", "Wall time from worker start to exit",
		[]float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400}, "kind")

	m.eventStateTransitions = m.counterVec("event_state_transitions_total", "Event state writes, by target state", "state")
	m.roundsCompleted = m.counter("rounds_completed_total", "Dating rounds that reached their break")
	m.groupsFinished = m.counter("groups_finished_total", "Group state machines that reached the final state")

	m.pairingLatency = m.histogram("pairing_latency_milliseconds", "Pairing engine run time in milliseconds", m.histogramBuckets)
	m.pairingParticipants = m.counterVec("pairing_participants_total", "Participants seen by the pairing engine, by outcome", "outcome")
	m.pairingGroups = m.counter("pairing_groups_total", "Groups produced by the pairing engine")

	m.commandsPublished = m.counterVec("commands_published_total", "Bot commands published, by command", "command")
	m.commandErrors = m.counterVec("command_errors_total", "Bot commands that failed to publish, by command", "command")

	m.queueSize = m.gauge("queue_size", "Current size of the in-memory command queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum in-memory command queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of commands enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of commands dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.consumerHandled = m.counterVec("consumer_commands_handled_total", "Commands handled by queue consumers, by command", "command")
	m.consumerErrors = m.counterVec("consumer_command_errors_total", "Commands a queue consumer failed to handle, by command", "command")
	m.consumerLatency = m.histogram("consumer_handle_latency_milliseconds", "Command handling latency in milliseconds", m.histogramBuckets)
	m.consumerActive = m.gauge("consumer_active_count", "Running queue consumers")
	m.consumerMessagesRate = m.gauge("consumer_messages_per_second", "Commands handled per second across consumers")

	m.providerCalls = m.counterVec("meet_provider_calls_total", "Meeting provider calls, by operation", "operation")
	m.providerErrors = m.counterVec("meet_provider_errors_total", "Failed meeting provider calls, by operation", "operation")

	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds",
		"Persistence call latency in milliseconds", m.histogramBuckets, "operation")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordSchedulerTick counts one scheduler pass.
func RecordSchedulerTick() {
	globalManager.schedulerTicks.Inc()
}

// RecordDueEvent counts an event found due for a worker kind.
func RecordDueEvent(kind string) {
	globalManager.schedulerDueEvents.WithLabelValues(kind).Inc()
}

// RecordWorkerStarted counts a spawned worker and bumps the active gauge.
func RecordWorkerStarted(kind string) {
	globalManager.workersStarted.WithLabelValues(kind).Inc()
	globalManager.workersActive.WithLabelValues(kind).Inc()
}

// RecordWorkerFinished records a worker exit. failed marks an error or panic.
func RecordWorkerFinished(kind string, failed bool, took time.Duration) {
	globalManager.workersActive.WithLabelValues(kind).Dec()
	globalManager.workerDuration.WithLabelValues(kind).Observe(took.Seconds())
	if failed {
		globalManager.workersFailed.WithLabelValues(kind).Inc()
		return
	}
	globalManager.workersFinished.WithLabelValues(kind).Inc()
}

// RecordEventState counts an event state write.
func RecordEventState(state string) {
	globalManager.eventStateTransitions.WithLabelValues(state).Inc()
}

// RecordRoundCompleted counts a finished dating round.
func RecordRoundCompleted() {
	globalManager.roundsCompleted.Inc()
}

// RecordGroupFinished counts a group that reached its final state.
func RecordGroupFinished() {
	globalManager.groupsFinished.Inc()
}

// RecordPairing records one pairing engine run.
func RecordPairing(latencyMs float64, matched, unmatched, groups int) {
	globalManager.pairingLatency.Observe(latencyMs)
	globalManager.pairingParticipants.WithLabelValues("matched").Add(float64(matched))
	globalManager.pairingParticipants.WithLabelValues("unmatched").Add(float64(unmatched))
	globalManager.pairingGroups.Add(float64(groups))
}

// RecordCommandPublished counts a published bot command.
func RecordCommandPublished(command string) {
	globalManager.commandsPublished.WithLabelValues(command).Inc()
}

// RecordCommandError counts a bot command that could not be published.
func RecordCommandError(command string) {
	globalManager.commandErrors.WithLabelValues(command).Inc()
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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordCommandHandled records one command taken off the queue by a consumer.
func RecordCommandHandled(command string, latencyMs float64, err error) {
	globalManager.consumerLatency.Observe(latencyMs)
	if err != nil {
		globalManager.consumerErrors.WithLabelValues(command).Inc()
		return
	}
	globalManager.consumerHandled.WithLabelValues(command).Inc()
}

// UpdateConsumerActiveCount sets the number of running consumers.
func UpdateConsumerActiveCount(count int) {
	globalManager.consumerActive.Set(float64(count))
}

// UpdateConsumerMessagesPerSecond sets the consumer throughput gauge.
func UpdateConsumerMessagesPerSecond(rate float64) {
	globalManager.consumerMessagesRate.Set(rate)
}

// RecordProviderCall counts a meeting provider call and its failure, if any.
func RecordProviderCall(operation string, err error) {
	globalManager.providerCalls.WithLabelValues(operation).Inc()
	if err != nil {
		globalManager.providerErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRepositoryQueryLatency records persistence call latency.
func RecordRepositoryQueryLatency(operation string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(operation).Observe(latencyMs)
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
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
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
