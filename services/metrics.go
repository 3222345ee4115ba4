// services/metrics.go
package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyiso_scrape_runs_total",
			Help: "Total scrape runs by source and outcome",
		},
		[]string{"source", "status"}, // status=completed/failed/skipped
	)

	rowsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyiso_rows_written_total",
			Help: "Total rows written to the database by source and operation",
		},
		[]string{"source", "op"}, // op=inserted/updated
	)

	fetchRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nyiso_fetch_retries_total",
			Help: "Total download retry attempts by source",
		},
		[]string{"source"},
	)
)
