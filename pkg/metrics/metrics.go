// Package metrics provides the Prometheus registry reference and HTTP endpoint
// for the harvester. All metrics are defined in their respective packages
// (oai, harvest, checkpoint) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns a mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthHandler)
	return mux
}

// NewServer returns an HTTP server for Handler on addr. The caller starts
// and shuts it down.
func NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// Metrics Documentation
//
// Request Metrics (pkg/oai):
//   - oai_requests_total{status} (Counter): Page requests by HTTP status (or network_error)
//   - oai_request_duration_seconds (Histogram): Page request duration
//   - oai_errors_total{class} (Counter): Transport errors by class (client, server, network)
//
// Harvest Metrics (pkg/harvest):
//   - harvest_pages_total{outcome} (Counter): Pages by outcome (ok, parse_error, protocol_error, no_records)
//   - harvest_records_total{outcome} (Counter): Records by outcome (emitted, extraction_error, filter reason)
//   - harvest_rows_written_total (Counter): Rows appended to the output
//   - harvest_progress_ratio (Gauge): cursor / completeListSize of the current harvest
//
// Retry Metrics (pkg/harvest):
//   - harvest_parse_retries_total (Counter): Re-fetches of malformed pages
//   - harvest_retry_backoff_seconds (Histogram): Pause before each re-fetch
//   - harvest_retry_exhausted_total (Counter): Harvests aborted by the retry policy
//
// Checkpoint Metrics (pkg/checkpoint):
//   - checkpoint_saves_total (Counter): Checkpoints written
//   - checkpoint_loads_total{result} (Counter): Checkpoint lookups (hit, miss)
//   - checkpoint_errors_total{operation} (Counter): Checkpoint store errors (get, set, delete)
//
// Example Prometheus Queries:
//
//   # Share of malformed pages
//   rate(harvest_pages_total{outcome="parse_error"}[5m]) / rate(harvest_pages_total[5m])
//
//   # Rows per minute
//   rate(harvest_rows_written_total[1m]) * 60
//
//   # Filtered records by reason
//   sum by (outcome) (rate(harvest_records_total[15m]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(oai_request_duration_seconds_bucket[5m]))
