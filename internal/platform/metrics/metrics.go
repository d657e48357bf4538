package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and histograms for the HLS proxy.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	cacheHitsLocal      prometheus.Counter
	cacheHitsRemote     prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	cacheErrorsTotal    prometheus.Counter
	ssrfRejectionsTotal prometheus.Counter
	rewriteErrorsTotal  prometheus.Counter
	prewarmScheduled    prometheus.Counter
	scraperStaleTotal   prometheus.Counter
	fetchDuration       prometheus.Histogram
}

// New creates and registers Prometheus metrics for the proxy.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	cacheHitsLocal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_cache_hits_local_total",
		Help: "Total number of in-process cache hits",
	})
	cacheHitsRemote := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_cache_hits_remote_total",
		Help: "Total number of remote cache hits",
	})
	cacheMissesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_cache_misses_total",
		Help: "Total number of cache misses across both tiers",
	})
	cacheErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_cache_errors_total",
		Help: "Total number of remote cache I/O failures, swallowed as misses",
	})
	ssrfRejectionsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_ssrf_rejections_total",
		Help: "Total number of requests rejected by the SSRF guard",
	})
	rewriteErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_rewrite_errors_total",
		Help: "Total number of manifest rewrite failures",
	})
	prewarmScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_prewarm_scheduled_total",
		Help: "Total number of scraper-cache pre-warm lookups scheduled",
	})
	scraperStaleTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hlsproxy_scraper_stale_served_total",
		Help: "Total number of responses served from a stale scraper-cache record",
	})
	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hlsproxy_origin_fetch_duration_seconds",
		Help:    "Origin fetch latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		cacheHitsLocal,
		cacheHitsRemote,
		cacheMissesTotal,
		cacheErrorsTotal,
		ssrfRejectionsTotal,
		rewriteErrorsTotal,
		prewarmScheduled,
		scraperStaleTotal,
		fetchDuration,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		cacheHitsLocal:      cacheHitsLocal,
		cacheHitsRemote:     cacheHitsRemote,
		cacheMissesTotal:    cacheMissesTotal,
		cacheErrorsTotal:    cacheErrorsTotal,
		ssrfRejectionsTotal: ssrfRejectionsTotal,
		rewriteErrorsTotal:  rewriteErrorsTotal,
		prewarmScheduled:    prewarmScheduled,
		scraperStaleTotal:   scraperStaleTotal,
		fetchDuration:       fetchDuration,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncCacheHit increments the hit counter for the given tier ("local" or "remote").
func (m *Metrics) IncCacheHit(tier string) {
	if tier == "remote" {
		m.cacheHitsRemote.Inc()
		return
	}
	m.cacheHitsLocal.Inc()
}

// IncCacheMiss increments the cache-miss counter.
func (m *Metrics) IncCacheMiss() {
	m.cacheMissesTotal.Inc()
}

// IncCacheError increments the remote cache I/O failure counter.
func (m *Metrics) IncCacheError() {
	m.cacheErrorsTotal.Inc()
}

// IncSSRFRejection increments the SSRF guard rejection counter.
func (m *Metrics) IncSSRFRejection() {
	m.ssrfRejectionsTotal.Inc()
}

// IncRewriteError increments the manifest rewrite failure counter.
func (m *Metrics) IncRewriteError() {
	m.rewriteErrorsTotal.Inc()
}

// IncPrewarmScheduled increments the pre-warm scheduled counter by n.
func (m *Metrics) IncPrewarmScheduled(n int) {
	m.prewarmScheduled.Add(float64(n))
}

// IncScraperStaleServed increments the stale-scraper-record-served counter.
func (m *Metrics) IncScraperStaleServed() {
	m.scraperStaleTotal.Inc()
}

// ObserveFetchDuration records an origin fetch's duration in seconds.
func (m *Metrics) ObserveFetchDuration(seconds float64) {
	m.fetchDuration.Observe(seconds)
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
