// Package metrics provides Prometheus metrics for the tourguide tracking service.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// latencyBucketsMs covers simulated collaborator latency up to a few seconds.
var latencyBucketsMs = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // shared bucket layout

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer
	gatherer         *prometheus.Registry

	// Tracker
	trackerCycles        prometheus.Counter
	trackerCycleDuration prometheus.Histogram
	trackedEntities      prometheus.Gauge
	trackerRunning       prometheus.Gauge

	// Collaborators
	locationLatency prometheus.Histogram
	locationErrors  prometheus.Counter
	oracleLatency   prometheus.Histogram
	oracleErrors    prometheus.Counter

	// Rewards
	rewardsIssued       prometheus.Counter
	rewardClaimConflict prometheus.Counter
	evaluationDuration  prometheus.Histogram

	// Pool
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueRejected     prometheus.Counter
	workerActiveCount prometheus.Gauge
	workerBusyCount   prometheus.Gauge
	taskLatency       prometheus.Histogram
	taskPanics        prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram

	// Ops HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var global atomic.Pointer[Manager] //nolint:gochecknoglobals // singleton used by the Record*/Update* helpers

func init() { //nolint:gochecknoinits // global metrics setup
	Init()
}

// Init replaces the global manager with one built from opts on a fresh
// registry that holds no default Go collectors. Handler serves the new
// registry from then on.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	m.gatherer = registry
	global.Store(m)
}

// active returns the global manager, or nil while recording is disabled.
func active() *Manager {
	m := global.Load()
	if m == nil || !m.enabled {
		return nil
	}
	return m
}

// NewManager creates a Manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tourguide",
		subsystem:        "tracker",
		histogramBuckets: latencyBucketsMs,
		enabled:          true,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
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

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.trackerCycles = m.counter("cycles_total", "Completed tracking cycles")
	m.trackerCycleDuration = m.histogram("cycle_duration_milliseconds", "Wall time of one full pass over the roster")
	m.trackedEntities = m.gauge("tracked_entities", "Entities in the roster snapshot of the last cycle")
	m.trackerRunning = m.gauge("running", "1 while the periodic tracker loop is running")

	m.locationLatency = m.histogram("location_latency_milliseconds", "Location provider call latency")
	m.locationErrors = m.counter("location_errors_total", "Failed location provider calls")
	m.oracleLatency = m.histogram("oracle_latency_milliseconds", "Reward oracle call latency")
	m.oracleErrors = m.counter("oracle_errors_total", "Failed reward oracle calls")

	m.rewardsIssued = m.counter("rewards_issued_total", "Reward records appended to entities")
	m.rewardClaimConflict = m.counter("reward_claim_conflicts_total", "Reward claims rejected because the attraction was already claimed")
	m.evaluationDuration = m.histogram("evaluation_duration_milliseconds", "Reward evaluation time per entity")

	m.queueSize = m.gauge("queue_size", "Tasks waiting in the worker pool queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the worker pool queue")
	m.queueRejected = m.counter("queue_rejected_total", "Tasks rejected because the pool was stopped or ctx ended")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers started in the pool")
	m.workerBusyCount = m.gauge("worker_busy_count", "Workers currently running a task")
	m.taskLatency = m.histogram("task_latency_milliseconds", "Execution time of pool tasks")
	m.taskPanics = m.counter("task_panics_total", "Pool tasks that panicked")

	m.systemMemoryBytes = m.gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutines = m.gauge("system_goroutines", "Running goroutines")
	m.systemGCPause = m.histogram("system_gc_pause_milliseconds", "Average GC pause time")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Ops HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Ops HTTP request duration",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Tracker metrics.

// RecordCycle records one completed cycle and its duration.
func RecordCycle(durationMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.trackerCycles.Inc()
	m.trackerCycleDuration.Observe(durationMs)
}

// UpdateTrackedEntities sets the roster size seen by the last cycle.
func UpdateTrackedEntities(count int) {
	m := active()
	if m == nil {
		return
	}
	m.trackedEntities.Set(float64(count))
}

// SetTrackerRunning flips the running gauge.
func SetTrackerRunning(running bool) {
	m := active()
	if m == nil {
		return
	}
	if running {
		m.trackerRunning.Set(1)
		return
	}
	m.trackerRunning.Set(0)
}

// Collaborator metrics.

// RecordLocationLatency records a location provider call.
func RecordLocationLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.locationLatency.Observe(latencyMs)
}

// RecordLocationError counts a failed location provider call.
func RecordLocationError() {
	m := active()
	if m == nil {
		return
	}
	m.locationErrors.Inc()
	RecordErrorByComponent("location_provider", "unavailable")
}

// RecordOracleLatency records a reward oracle call.
func RecordOracleLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.oracleLatency.Observe(latencyMs)
}

// RecordOracleError counts a failed reward oracle call.
func RecordOracleError() {
	m := active()
	if m == nil {
		return
	}
	m.oracleErrors.Inc()
	RecordErrorByComponent("reward_oracle", "unavailable")
}

// Reward metrics.

// RecordRewardIssued counts an appended reward record.
func RecordRewardIssued() {
	m := active()
	if m == nil {
		return
	}
	m.rewardsIssued.Inc()
}

// RecordRewardClaimConflict counts a claim lost to a concurrent evaluation.
func RecordRewardClaimConflict() {
	m := active()
	if m == nil {
		return
	}
	m.rewardClaimConflict.Inc()
}

// RecordEvaluationDuration records the time spent evaluating one entity.
func RecordEvaluationDuration(durationMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.evaluationDuration.Observe(durationMs)
}

// Pool metrics.

// UpdateQueueSize sets the number of queued tasks.
func UpdateQueueSize(size int) {
	m := active()
	if m == nil {
		return
	}
	m.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	m := active()
	if m == nil {
		return
	}
	m.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected counts a task that could not be queued.
func RecordQueueRejected(reason string) {
	m := active()
	if m == nil {
		return
	}
	m.queueRejected.Inc()
	RecordErrorByComponent("queue", reason)
}

// UpdateWorkerActiveCount sets the number of started workers.
func UpdateWorkerActiveCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.workerActiveCount.Set(float64(count))
}

// AddWorkerBusy adjusts the busy worker gauge by delta.
func AddWorkerBusy(delta int) {
	m := active()
	if m == nil {
		return
	}
	m.workerBusyCount.Add(float64(delta))
}

// RecordTaskLatency records how long a pool task ran.
func RecordTaskLatency(latencyMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.taskLatency.Observe(latencyMs)
}

// RecordTaskPanic counts a recovered task panic.
func RecordTaskPanic() {
	m := active()
	if m == nil {
		return
	}
	m.taskPanics.Inc()
	RecordErrorByComponent("worker", "panic")
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	m := active()
	if m == nil {
		return
	}
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	m := active()
	if m == nil {
		return
	}
	m.systemMemoryBytes.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	m := active()
	if m == nil {
		return
	}
	m.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	m := active()
	if m == nil {
		return
	}
	m.systemGCPause.Observe(ms)
}

// Ops HTTP metrics.

// RecordHTTPRequest records an ops HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m := active()
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry holding every service metric.
func GetRegistry() *prometheus.Registry {
	return global.Load().gatherer
}

// Handler serves the current registry in the Prometheus exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
