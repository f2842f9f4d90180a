// Package metrics provides the centralized Prometheus metrics registry
// for the order sync. All metrics are defined in their respective
// packages (squarespace, store, ordersync) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the order sync.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Commerce API Metrics (pkg/squarespace):
//   - squarespace_requests_total{status} (Counter): Requests to the commerce API by HTTP status
//   - squarespace_request_duration_seconds (Histogram): Commerce API request duration
//   - squarespace_pages_fetched_total (Counter): Collection pages fetched across all runs
//
// Persistence Metrics (pkg/store):
//   - sync_rows_total{outcome} (Counter): Line item rows by outcome (inserted, duplicate, failed)
//   - sync_orders_committed_total (Counter): Order transactions committed
//
// Run Metrics (pkg/ordersync):
//   - sync_runs_total{outcome} (Counter): Runs by outcome (success, empty, lock_held, fetch_failed, store_failed)
//
// Example Prometheus Queries:
//
//   # Duplicate Rate (how much of each run is already loaded)
//   rate(sync_rows_total{outcome="duplicate"}[1h]) /
//   sum(rate(sync_rows_total[1h]))
//
//   # Failed Runs
//   increase(sync_runs_total{outcome=~"fetch_failed|store_failed"}[1d])
//
//   # P95 Commerce API Latency
//   histogram_quantile(0.95, rate(squarespace_request_duration_seconds_bucket[5m]))
//
//   # Pages per Run
//   increase(squarespace_pages_fetched_total[1d]) / increase(sync_runs_total[1d])
