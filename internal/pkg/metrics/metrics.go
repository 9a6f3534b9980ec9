package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var HttpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_http_requests_total",
}, []string{"action", "method"})
var HttpResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_http_responses_total",
}, []string{"action", "method", "statusCode"})
var HttpResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "bookmark_http_response_time_seconds",
}, []string{"action", "method"})
var CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_cache_hits_total",
}, []string{"cache"})
var CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_cache_misses_total",
}, []string{"cache"})
var CacheInvalidations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_cache_invalidations_total",
}, []string{"cache"})
var PreviewsResolved = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_previews_resolved_total",
}, []string{"type"})
var PreviewFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_preview_fetch_failures_total",
}, []string{"stage"})
var JobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bookmark_jobs_processed_total",
}, []string{"type", "result"})

func init() {
	prometheus.MustRegister(HttpRequests)
	prometheus.MustRegister(HttpResponses)
	prometheus.MustRegister(HttpResponseTime)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheInvalidations)
	prometheus.MustRegister(PreviewsResolved)
	prometheus.MustRegister(PreviewFetchFailures)
	prometheus.MustRegister(JobsProcessed)
}
