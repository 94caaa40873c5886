// Package metrics provides Prometheus metrics for the duel ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	iterationBuckets []float64
	registry         prometheus.Registerer

	// Votes
	votesReceived  prometheus.Counter
	votesDuplicate prometheus.Counter
	votesRejected  *prometheus.CounterVec
	votesRecorded  prometheus.Counter
	votesTotal     prometheus.Gauge

	// Fitting
	fitDuration      prometheus.Histogram
	fitIterations    prometheus.Histogram
	fitNonConverged  prometheus.Counter
	competitorsRated prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeErrors *prometheus.CounterVec
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
		namespace:        "duel",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		iterationBuckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help})
	}

	m.votesReceived = counter("votes_received_total", "Votes accepted by the API")
	m.votesDuplicate = counter("votes_duplicate_total", "Votes dropped because their id was already seen")
	m.votesRecorded = counter("votes_recorded_total", "Votes written to the vote store")
	m.votesTotal = gauge("votes", "Votes in the last snapshot used for fitting")
	m.votesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_rejected_total",
		Help:      "Votes rejected before queueing, by reason",
	}, []string{"reason"})

	m.fitDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fit_duration_milliseconds",
		Help:      "Wall time of a Bradley-Terry fit in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.fitIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fit_iterations",
		Help:      "Rounds run per fit",
		Buckets:   m.iterationBuckets,
	})
	m.fitNonConverged = counter("fit_nonconverged_total", "Fits that hit the iteration budget without converging")
	m.competitorsRated = gauge("competitors", "Competitors in the last fitted ranking")
	m.cacheHits = counter("rankings_cache_hits_total", "Ranking requests served from cache")
	m.cacheMisses = counter("rankings_cache_misses_total", "Ranking requests that triggered a fit")

	m.queueSize = gauge("queue_size", "Votes waiting in the queue")
	m.queueCapacity = gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Enqueue failures by reason",
	}, []string{"reason"})

	m.workerCount = gauge("worker_count", "Vote recording workers")
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time to record one vote in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerErrors = counter("worker_errors_total", "Votes a worker failed to record")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Vote store failures by backend and operation",
	}, []string{"backend", "op"})
}

// Package-level helpers delegate to the global manager.

func RecordVoteReceived()                { globalManager.votesReceived.Inc() }
func RecordVoteDuplicate()               { globalManager.votesDuplicate.Inc() }
func RecordVoteRejected(reason string)   { globalManager.votesRejected.WithLabelValues(reason).Inc() }
func RecordVoteRecorded()                { globalManager.votesRecorded.Inc() }
func UpdateVotesTotal(n int64)           { globalManager.votesTotal.Set(float64(n)) }
func RecordFitDuration(ms float64)       { globalManager.fitDuration.Observe(ms) }
func RecordFitIterations(n int)          { globalManager.fitIterations.Observe(float64(n)) }
func RecordFitNonConverged()             { globalManager.fitNonConverged.Inc() }
func UpdateCompetitors(n int)            { globalManager.competitorsRated.Set(float64(n)) }
func RecordRankingsCacheHit()            { globalManager.cacheHits.Inc() }
func RecordRankingsCacheMiss()           { globalManager.cacheMisses.Inc() }
func UpdateQueueSize(size int)           { globalManager.queueSize.Set(float64(size)) }
func UpdateQueueCapacity(capacity int)   { globalManager.queueCapacity.Set(float64(capacity)) }
func RecordQueueEnqueueError(why string) { globalManager.queueEnqueueErrors.WithLabelValues(why).Inc() }
func UpdateWorkerCount(count int)        { globalManager.workerCount.Set(float64(count)) }
func RecordWorkerError()                 { globalManager.workerErrors.Inc() }

// RecordWorkerProcessingLatency observes the time taken to record one vote.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest counts one HTTP request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordStoreError counts a vote store failure.
func RecordStoreError(backend, op string) {
	globalManager.storeErrors.WithLabelValues(backend, op).Inc()
}

// GetRegistry returns the custom registry served on /healthz and /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
