// Package metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "backend_unreachable"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
)

// Page sources.
const (
	SourceBackend = "backend"
	SourceCache   = "cache"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CrawlRuns          *prometheus.CounterVec
	CrawlRunDuration   prometheus.Histogram
	Pages              *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	SharedFetches      prometheus.Counter
	CacheInvalidations prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	CallerThrottled    prometheus.Counter
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CrawlRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlgate_crawl_runs_total",
				Help: "Total number of crawl runs, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		CrawlRunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawlgate_crawl_run_duration_seconds",
				Help:    "Duration of whole crawl runs in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		Pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlgate_pages_total",
				Help: "Total number of page results, labeled by source and success.",
			},
			[]string{"source", "success"},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawlgate_backend_fetch_duration_seconds",
				Help:    "Duration of single-page backend fetches in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SharedFetches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlgate_shared_fetches_total",
				Help: "Fetches answered by an identical in-flight fetch of another run.",
			},
		),
		CacheInvalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlgate_cache_invalidated_entries_total",
				Help: "Total number of cache entries removed by invalidation or clearing.",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawlgate_http_requests_total",
				Help: "Total number of API requests, labeled by route and status code.",
			},
			[]string{"route", "code"},
		),
		CallerThrottled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "crawlgate_caller_throttled_total",
				Help: "Total number of crawl requests rejected by the per-caller limit.",
			},
		),
	}

	reg.MustRegister(
		m.CrawlRuns,
		m.CrawlRunDuration,
		m.Pages,
		m.FetchDuration,
		m.SharedFetches,
		m.CacheInvalidations,
		m.HTTPRequests,
		m.CallerThrottled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCacheSize exports the live cache size through fn.
func (m *Metrics) RegisterCacheSize(fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "crawlgate_cache_entries",
			Help: "Number of entries currently held in the result cache.",
		},
		fn,
	))
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records a finished crawl run.
func (m *Metrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CrawlRuns.WithLabelValues(outcome).Inc()
	m.CrawlRunDuration.Observe(elapsed.Seconds())
}

// ObservePage records one page result.
func (m *Metrics) ObservePage(source string, success bool) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(source, strconv.FormatBool(success)).Inc()
}

// ObserveFetch records the duration of one backend fetch.
func (m *Metrics) ObserveFetch(elapsed time.Duration, shared bool) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(elapsed.Seconds())
	if shared {
		m.SharedFetches.Inc()
	}
}

// ObserveInvalidation records removed cache entries.
func (m *Metrics) ObserveInvalidation(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheInvalidations.Add(float64(n))
}

// ObserveHTTP records one API response.
func (m *Metrics) ObserveHTTP(route string, code int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveThrottled records a request rejected by the caller limiter.
func (m *Metrics) ObserveThrottled() {
	if m == nil {
		return
	}
	m.CallerThrottled.Inc()
}
