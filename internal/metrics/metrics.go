// Package metrics provides Prometheus metrics for PlayCraft.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. It implements the tracker and
// intelligence metrics interfaces.
type Metrics struct {
	ChangesTracked    *prometheus.CounterVec
	HashBatches       prometheus.Counter
	HashesChanged     prometheus.Counter
	Embeddings        *prometheus.CounterVec
	SuggestDuration   prometheus.Histogram
	IntelligenceCache *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	PublishJobs       *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ChangesTracked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_tracker_changes_total",
				Help: "File changes queued for tracking by source.",
			},
			[]string{"source"},
		),
		HashBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playcraft_tracker_hash_batches_total",
			Help: "Processed batches that changed at least one hash.",
		}),
		HashesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "playcraft_tracker_hashes_changed_total",
			Help: "File hashes that changed.",
		}),
		Embeddings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_embeddings_total",
				Help: "Embedding generations by result.",
			},
			[]string{"result"},
		),
		SuggestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "playcraft_suggest_duration_seconds",
			Help:    "File suggestion latency.",
			Buckets: prometheus.DefBuckets,
		}),
		IntelligenceCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_intelligence_cache_total",
				Help: "Intelligence cache lookups by result.",
			},
			[]string{"result"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_http_requests_total",
				Help: "HTTP requests by method, route and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playcraft_http_request_duration_seconds",
				Help:    "HTTP request latency by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		PublishJobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_publish_jobs_total",
				Help: "Finished publish jobs by status.",
			},
			[]string{"status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playcraft_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ChangesTracked,
		m.HashBatches,
		m.HashesChanged,
		m.Embeddings,
		m.SuggestDuration,
		m.IntelligenceCache,
		m.HTTPRequests,
		m.HTTPDuration,
		m.PublishJobs,
		m.ErrorsTotal,
	)
	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterActiveSessions exposes the live play session count.
func (m *Metrics) RegisterActiveSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "playcraft_active_sessions",
			Help: "Puzzle Kit play sessions held in memory.",
		},
		func() float64 { return float64(count()) },
	))
}

// ChangeTracked counts one queued change.
func (m *Metrics) ChangeTracked(source string) {
	m.ChangesTracked.WithLabelValues(source).Inc()
}

// HashBatch counts a processed batch with changed hashes.
func (m *Metrics) HashBatch(changed int) {
	m.HashBatches.Inc()
	m.HashesChanged.Add(float64(changed))
}

// EmbeddingDone counts one embedding result.
func (m *Metrics) EmbeddingDone(ok bool) {
	m.Embeddings.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) CacheHit()  { m.IntelligenceCache.WithLabelValues("hit").Inc() }
func (m *Metrics) CacheMiss() { m.IntelligenceCache.WithLabelValues("miss").Inc() }

// SuggestLatency records one suggestion run.
func (m *Metrics) SuggestLatency(d time.Duration) {
	m.SuggestDuration.Observe(d.Seconds())
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordPublish counts a finished publish job.
func (m *Metrics) RecordPublish(status string) {
	m.PublishJobs.WithLabelValues(status).Inc()
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
