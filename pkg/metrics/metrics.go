// Package metrics exposes the Prometheus registry used by the quote client.
// Metrics are defined in their respective packages (ratelimit, auth, cache,
// client, resolve, httpapi) and registered there via promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the quote client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Quota Guard Metrics (pkg/ratelimit):
//   - quote_rate_guard_admitted_total (Counter): Upstream calls admitted by the guard
//   - quote_rate_guard_rejected_total (Counter): Upstream calls rejected because the window is full
//   - quote_rate_guard_window_used (Gauge): Calls counted in the current window
//
// Token Metrics (pkg/auth):
//   - quote_token_refreshes_total{result} (Counter): Token exchanges by result (ok, rejected, invalid, network_error)
//
// Cache Metrics (pkg/cache):
//   - quote_cache_hits_total{backend} (Counter): Cache hits by backend (memory, redis)
//   - quote_cache_misses_total{backend} (Counter): Cache misses, expired entries included
//   - quote_cache_evictions_total{backend} (Counter): Expired entries removed on read
//   - quote_cache_errors_total{operation} (Counter): Cache backend errors
//
// Upstream Metrics (pkg/client):
//   - quote_upstream_requests_total{status} (Counter): Item requests by HTTP status
//   - quote_upstream_request_duration_seconds (Histogram): Item request duration
//   - quote_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//
// Resolution Metrics (pkg/resolve):
//   - quote_resolve_lines_total{outcome} (Counter): Lines by outcome (ok, lookup_miss, upstream_error, fetch_failed)
//   - quote_resolve_batches_aborted_total (Counter): Batches stopped on quota exhaustion
//
// HTTP API Metrics (internal/httpapi):
//   - quote_http_requests_total{route, status} (Counter): API requests by route and status
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(quote_cache_hits_total[5m])) /
//   (sum(rate(quote_cache_hits_total[5m])) + sum(rate(quote_cache_misses_total[5m])))
//
//   # Quota pressure
//   quote_rate_guard_window_used > 80
//
//   # Aborted batches
//   rate(quote_resolve_batches_aborted_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(quote_upstream_request_duration_seconds_bucket[5m]))
