// Package metrics provides Prometheus metrics for the phstats analytics engine.
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

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Query metrics
	queries           *prometheus.CounterVec
	queryLatency      prometheus.Histogram
	scoringLatency    prometheus.Histogram
	aggregateLatency  prometheus.Histogram
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	leaderboardSize   prometheus.Gauge
	coalescedQueries  prometheus.Counter
	invalidQueries    prometheus.Counter
	degenerateBuckets prometheus.Counter

	// Snapshot metrics
	recordsLoaded           prometheus.Gauge
	recordsDropped          *prometheus.GaugeVec
	snapshotReloads         prometheus.Counter
	snapshotReloadErrors    prometheus.Counter
	snapshotLastUnix        prometheus.Gauge
	snapshotRebuildDuration prometheus.Histogram
	repositoryLoadLatency   prometheus.Histogram
	repositoryInsertedTotal prometheus.Counter

	// Ingest metrics
	ingestQueueCapacity   prometheus.Gauge
	ingestQueueSize       prometheus.Gauge
	ingestBatchesEnqueued prometheus.Counter
	ingestEnqueueErrors   prometheus.Counter
	ingestBatchesWritten  prometheus.Counter
	ingestWriteErrors     prometheus.Counter
	ingestWriteLatency    prometheus.Histogram
	ingestActiveWriters   prometheus.Gauge
	ingestRowsPerSecond   prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
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
		namespace:        "phstats",
		subsystem:        "engine",
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

	// A disabled manager still builds its collectors so callers never see
	// nil metrics, but they go to a private registry nobody scrapes.
	if !m.enabled {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often periodic gauges should be sampled.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether the manager publishes to a shared registry.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Query metrics
	m.queries = auto.NewCounterVec(
		m.counterOpts("queries_total", "Total number of leaderboard queries by aggregation mode"),
		[]string{"aggregation"},
	)
	m.queryLatency = auto.NewHistogram(m.histogramOpts(
		"query_latency_milliseconds", "End-to-end leaderboard query latency in milliseconds", m.histogramBuckets))
	m.scoringLatency = auto.NewHistogram(m.histogramOpts(
		"scoring_latency_milliseconds", "JIS scoring latency in milliseconds", m.histogramBuckets))
	m.aggregateLatency = auto.NewHistogram(m.histogramOpts(
		"aggregate_latency_milliseconds", "WAR aggregation latency in milliseconds", m.histogramBuckets))
	m.cacheHits = auto.NewCounter(m.counterOpts("cache_hits_total", "Total number of leaderboard cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("cache_misses_total", "Total number of leaderboard cache misses"))
	m.leaderboardSize = auto.NewGauge(m.gaugeOpts("leaderboard_entries", "Number of entries in the most recent leaderboard"))
	m.coalescedQueries = auto.NewCounter(m.counterOpts(
		"queries_coalesced_total", "Total number of queries served by an identical in-flight computation"))
	m.invalidQueries = auto.NewCounter(m.counterOpts("queries_invalid_total", "Total number of rejected filter specs"))
	m.degenerateBuckets = auto.NewCounter(m.counterOpts(
		"degenerate_baselines_total", "Total number of baseline buckets too small to produce WAR"))

	// Snapshot metrics
	m.recordsLoaded = auto.NewGauge(m.gaugeOpts("records_loaded", "Number of performance records in the active snapshot"))
	m.recordsDropped = auto.NewGaugeVec(
		m.gaugeOpts("records_dropped", "Number of raw rows dropped during the last load by reason"),
		[]string{"reason"},
	)
	m.snapshotReloads = auto.NewCounter(m.counterOpts("snapshot_reloads_total", "Total number of snapshot reloads"))
	m.snapshotReloadErrors = auto.NewCounter(m.counterOpts("snapshot_reload_errors_total", "Total number of failed snapshot reloads"))
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix timestamp of the last snapshot publish"))
	m.snapshotRebuildDuration = auto.NewHistogram(m.histogramOpts(
		"snapshot_rebuild_duration_milliseconds", "Snapshot rebuild duration in milliseconds", m.histogramBuckets))
	m.repositoryLoadLatency = auto.NewHistogram(m.histogramOpts(
		"repository_load_latency_milliseconds", "Repository load latency in milliseconds", m.histogramBuckets))
	m.repositoryInsertedTotal = auto.NewCounter(m.counterOpts(
		"repository_inserted_total", "Total number of performance rows written to the repository"))

	// Ingest metrics
	m.ingestQueueCapacity = auto.NewGauge(m.gaugeOpts("ingest_queue_capacity", "Maximum number of batches the ingest queue holds"))
	m.ingestQueueSize = auto.NewGauge(m.gaugeOpts("ingest_queue_size", "Number of batches waiting in the ingest queue"))
	m.ingestBatchesEnqueued = auto.NewCounter(m.counterOpts("ingest_batches_enqueued_total", "Total number of batches accepted by the ingest queue"))
	m.ingestEnqueueErrors = auto.NewCounter(m.counterOpts("ingest_enqueue_errors_total", "Total number of batches rejected by the ingest queue"))
	m.ingestBatchesWritten = auto.NewCounter(m.counterOpts("ingest_batches_written_total", "Total number of batches written by ingest writers"))
	m.ingestWriteErrors = auto.NewCounter(m.counterOpts("ingest_write_errors_total", "Total number of failed batch writes"))
	m.ingestWriteLatency = auto.NewHistogram(m.histogramOpts(
		"ingest_write_latency_milliseconds", "Batch write latency in milliseconds", m.histogramBuckets))
	m.ingestActiveWriters = auto.NewGauge(m.gaugeOpts("ingest_active_writers", "Number of running ingest writers"))
	m.ingestRowsPerSecond = auto.NewGauge(m.gaugeOpts("ingest_rows_per_second", "Rows written per second by the ingest pool"))

	// HTTP metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	// System metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordQuery increments the query counter for an aggregation mode.
func RecordQuery(aggregation string) {
	globalManager.queries.WithLabelValues(aggregation).Inc()
}

// RecordQueryLatency records end-to-end query latency in milliseconds.
func RecordQueryLatency(latencyMs float64) {
	globalManager.queryLatency.Observe(latencyMs)
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordAggregateLatency records WAR aggregation latency in milliseconds.
func RecordAggregateLatency(latencyMs float64) {
	globalManager.aggregateLatency.Observe(latencyMs)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCoalescedQuery increments the coalesced query counter.
func RecordCoalescedQuery() {
	globalManager.coalescedQueries.Inc()
}

// RecordInvalidQuery increments the rejected spec counter.
func RecordInvalidQuery() {
	globalManager.invalidQueries.Inc()
}

// RecordDegenerateBaselines adds n degenerate baseline buckets.
func RecordDegenerateBaselines(n int) {
	if n > 0 {
		globalManager.degenerateBuckets.Add(float64(n))
	}
}

// UpdateLeaderboardSize sets the size of the most recent leaderboard.
func UpdateLeaderboardSize(count int) {
	globalManager.leaderboardSize.Set(float64(count))
}

// UpdateRecordsLoaded sets the number of records in the active snapshot.
func UpdateRecordsLoaded(count int) {
	globalManager.recordsLoaded.Set(float64(count))
}

// UpdateRecordsDropped sets the dropped row count for one reason.
func UpdateRecordsDropped(reason string, count int) {
	globalManager.recordsDropped.WithLabelValues(reason).Set(float64(count))
}

// RecordSnapshotReload records a successful snapshot publish.
func RecordSnapshotReload(durationMs float64) {
	globalManager.snapshotReloads.Inc()
	globalManager.snapshotRebuildDuration.Observe(durationMs)
	globalManager.snapshotLastUnix.Set(float64(time.Now().Unix()))
}

// RecordSnapshotReloadError increments the failed reload counter.
func RecordSnapshotReloadError() {
	globalManager.snapshotReloadErrors.Inc()
}

// RecordRepositoryLoadLatency records repository load latency in milliseconds.
func RecordRepositoryLoadLatency(latencyMs float64) {
	globalManager.repositoryLoadLatency.Observe(latencyMs)
}

// RecordRepositoryInserted adds n to the inserted rows counter.
func RecordRepositoryInserted(n int) {
	if n > 0 {
		globalManager.repositoryInsertedTotal.Add(float64(n))
	}
}

// UpdateIngestQueueCapacity sets the ingest queue capacity.
func UpdateIngestQueueCapacity(capacity int) {
	globalManager.ingestQueueCapacity.Set(float64(capacity))
}

// UpdateIngestQueueSize sets the number of queued ingest batches.
func UpdateIngestQueueSize(size int) {
	globalManager.ingestQueueSize.Set(float64(size))
}

// RecordIngestEnqueue increments the accepted batch counter.
func RecordIngestEnqueue() {
	globalManager.ingestBatchesEnqueued.Inc()
}

// RecordIngestEnqueueError increments the rejected batch counter.
func RecordIngestEnqueueError() {
	globalManager.ingestEnqueueErrors.Inc()
}

// RecordIngestBatchWritten records one written batch and its latency.
func RecordIngestBatchWritten(latencyMs float64) {
	globalManager.ingestBatchesWritten.Inc()
	globalManager.ingestWriteLatency.Observe(latencyMs)
}

// RecordIngestWriteError increments the failed write counter.
func RecordIngestWriteError() {
	globalManager.ingestWriteErrors.Inc()
}

// UpdateIngestActiveWriters sets the number of running writers.
func UpdateIngestActiveWriters(count int) {
	globalManager.ingestActiveWriters.Set(float64(count))
}

// UpdateIngestRowsPerSecond sets the ingest throughput.
func UpdateIngestRowsPerSecond(rate float64) {
	globalManager.ingestRowsPerSecond.Set(rate)
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

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
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

// RefreshInterval reports how often the global manager's gauges should be sampled.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}
