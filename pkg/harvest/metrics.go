package harvest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pages and records.
var (
	harvestPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_pages_total",
		Help: "Total pages processed by outcome (ok, parse_error, protocol_error, no_records)",
	}, []string{"outcome"})

	harvestRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_records_total",
		Help: "Total records seen by outcome (emitted, extraction_error or a filter reason)",
	}, []string{"outcome"})

	harvestRowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_rows_written_total",
		Help: "Total rows appended to the output",
	})

	harvestProgressRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_progress_ratio",
		Help: "Provider cursor divided by completeListSize for the current harvest",
	})
)

func recordStatsMetrics(s ExtractStats) {
	if s.Emitted > 0 {
		harvestRecordsTotal.WithLabelValues("emitted").Add(float64(s.Emitted))
	}
	if len(s.Errors) > 0 {
		harvestRecordsTotal.WithLabelValues("extraction_error").Add(float64(len(s.Errors)))
	}
	for reason, n := range s.Filtered {
		harvestRecordsTotal.WithLabelValues(string(reason)).Add(float64(n))
	}
}
