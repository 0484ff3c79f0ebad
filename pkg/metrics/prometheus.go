// Package metrics provides Prometheus metrics for the quizboard service.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeAuthRequired = "auth_required"
	OutcomeError        = "error"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// acquisition
	snapshotFetches *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	fetchRetries    prometheus.Counter
	missingQuizzes  prometheus.Gauge

	// pipeline
	entriesIngested prometheus.Counter
	identities      prometheus.Gauge
	duplicateEdges  *prometheus.GaugeVec
	advisoryPairs   prometheus.Gauge
	clusters        prometheus.Gauge
	mergedPlayers   prometheus.Gauge
	mergedAway      prometheus.Gauge
	runDuration     prometheus.Histogram
	runs            prometheus.Counter
	runErrors       prometheus.Counter
	lastRunUnix     prometheus.Gauge

	// run history
	storeLatency *prometheus.HistogramVec

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "quizboard",
		subsystem:        "leaderboard",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.snapshotFetches = auto.NewCounterVec(m.counter("snapshot_fetches_total",
		"Quiz snapshot fetches by quiz and outcome"), []string{"quiz", "outcome"})
	m.fetchLatency = auto.NewHistogram(m.histogram("fetch_latency_milliseconds",
		"Latency of one quiz fetch including retries"))
	m.fetchRetries = auto.NewCounter(m.counter("fetch_retries_total",
		"Retried quiz fetch attempts"))
	m.missingQuizzes = auto.NewGauge(m.gauge("missing_quizzes",
		"Quizzes missing from the latest snapshot"))

	m.entriesIngested = auto.NewCounter(m.counter("entries_ingested_total",
		"Raw submissions folded into identities"))
	m.identities = auto.NewGauge(m.gauge("identities",
		"Distinct identities in the latest run"))
	m.duplicateEdges = auto.NewGaugeVec(m.gauge("duplicate_edges",
		"Duplicate edges in the latest run by detection method"), []string{"method"})
	m.advisoryPairs = auto.NewGauge(m.gauge("advisory_pairs",
		"Possible-duplicate pairs listed in the latest run"))
	m.clusters = auto.NewGauge(m.gauge("clusters",
		"Clusters in the latest run"))
	m.mergedPlayers = auto.NewGauge(m.gauge("merged_players",
		"Rows on the merged leaderboard"))
	m.mergedAway = auto.NewGauge(m.gauge("merged_away_identities",
		"Identities folded into another row"))
	m.runDuration = auto.NewHistogram(m.histogram("run_duration_milliseconds",
		"Duration of a full refresh"))
	m.runs = auto.NewCounter(m.counter("runs_total",
		"Completed refreshes"))
	m.runErrors = auto.NewCounter(m.counter("run_errors_total",
		"Failed refreshes"))
	m.lastRunUnix = auto.NewGauge(m.gauge("last_run_unix_seconds",
		"Unix time of the latest completed refresh"))

	m.storeLatency = auto.NewHistogramVec(m.histogram("store_latency_milliseconds",
		"Run history store latency by operation"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint, method and status code"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_total",
		"Errors by component and type"), []string{"component", "type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
}

// RecordSnapshotFetch counts one quiz fetch with its outcome.
func RecordSnapshotFetch(quiz, outcome string) {
	globalManager.snapshotFetches.WithLabelValues(quiz, outcome).Inc()
}

// RecordFetchLatency records the latency of one quiz fetch in milliseconds.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchRetry counts one retried fetch attempt.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RunSummary carries the counters of one pipeline run.
type RunSummary struct {
	Entries        int
	Identities     int
	EdgesByMethod  map[string]int
	Advisory       int
	Clusters       int
	Merged         int
	MergedAway     int
	MissingQuizzes int
	DurationMs     float64
	FinishedUnix   int64
}

// RecordRun publishes the outcome of a successful run.
func RecordRun(s RunSummary) {
	m := globalManager
	m.entriesIngested.Add(float64(s.Entries))
	m.identities.Set(float64(s.Identities))
	m.duplicateEdges.Reset()
	for method, n := range s.EdgesByMethod {
		m.duplicateEdges.WithLabelValues(method).Set(float64(n))
	}
	m.advisoryPairs.Set(float64(s.Advisory))
	m.clusters.Set(float64(s.Clusters))
	m.mergedPlayers.Set(float64(s.Merged))
	m.mergedAway.Set(float64(s.MergedAway))
	m.missingQuizzes.Set(float64(s.MissingQuizzes))
	m.runDuration.Observe(s.DurationMs)
	m.runs.Inc()
	m.lastRunUnix.Set(float64(s.FinishedUnix))
}

// RecordRunError counts a failed run.
func RecordRunError() {
	globalManager.runErrors.Inc()
}

// RecordStoreLatency records a run history operation in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method string, statusCode int) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method string, statusCode int, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Observe(durationMs)
}

// RecordError counts an error raised by component.
func RecordError(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMetrics samples heap usage and goroutine count.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.Alloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
