// Package metrics documents the Prometheus metrics exported by the
// Veracross client. Metrics are defined next to the code that drives them
// (pkg/client, pkg/ratelimit) and registered automatically via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the client.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - veracross_requests_total{resource, status} (Counter): Requests by resource and HTTP status
//   - veracross_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - veracross_records_pulled_total{resource} (Counter): Records accumulated across pages
//   - veracross_dropped_filters_total (Counter): Filter values dropped during normalization
//
// Rate Limit Metrics (pkg/ratelimit):
//   - veracross_rate_limit_remaining (Gauge): Calls remaining in the current window
//   - veracross_rate_limit_throttles_total (Counter): Pauses waiting for window reset
//   - veracross_rate_limit_sleep_seconds (Histogram): Duration of rate limit pauses
//
// Example Prometheus Queries:
//
//   # Request error rate
//   sum(rate(veracross_requests_total{status!="200"}[5m]))
//
//   # Time lost to throttling
//   rate(veracross_rate_limit_sleep_seconds_sum[5m])
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(veracross_request_duration_seconds_bucket[5m]))
