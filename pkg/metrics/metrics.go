// Package metrics provides the centralized Prometheus metrics registry for
// the Zotero MCP server. All metrics are defined in their respective packages
// (zotero, cache, ratelimit, server) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the server.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - zotero_cache_hits_total (Counter): Fresh cache entries served
//   - zotero_cache_misses_total (Counter): Lookups that fell through to the API
//   - zotero_cache_evictions_total (Counter): Entries evicted at capacity
//   - zotero_cache_expirations_total (Counter): Entries pruned after TTL expiry
//   - zotero_cache_entries (Gauge): Current number of cached responses
//
// Pacing Metrics (pkg/ratelimit):
//   - zotero_pacing_delays_total (Counter): Requests delayed by server pacing
//   - zotero_pacing_wait_seconds (Histogram): Time spent waiting for pacing deadlines
//
// Request Metrics (pkg/zotero):
//   - zotero_requests_total{method, status} (Counter): Total requests by HTTP method and status
//   - zotero_request_duration_seconds{method} (Histogram): Request duration by HTTP method
//   - zotero_errors_total{code} (Counter): Errors by taxonomy code
//
// Retry Metrics (pkg/zotero):
//   - zotero_retries_total (Counter): Retry attempts
//   - zotero_retry_backoff_seconds (Histogram): Backoff duration per retry
//   - zotero_retry_exhausted_total (Counter): Requests that exhausted max attempts
//
// Tool Metrics (internal/server):
//   - zotero_tool_calls_total{tool, outcome} (Counter): Tool invocations by name and outcome
//   - zotero_tool_duration_seconds{tool} (Histogram): Tool handler duration by name
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(zotero_cache_hits_total[5m])) /
//   (sum(rate(zotero_cache_hits_total[5m])) + sum(rate(zotero_cache_misses_total[5m])))
//
//   # Error Rate by Taxonomy Code
//   rate(zotero_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(zotero_request_duration_seconds_bucket[5m]))
//
//   # Tool Failure Ratio
//   sum(rate(zotero_tool_calls_total{outcome!="success"}[5m])) /
//   sum(rate(zotero_tool_calls_total[5m]))
