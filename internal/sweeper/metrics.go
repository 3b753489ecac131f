package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_sweep_runs_total",
		Help: "Total number of expiry sweep runs",
	})

	sweepFilesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_sweep_files_deleted_total",
		Help: "Total number of files deleted by the sweeper",
	})

	sweepRecordsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_sweep_records_deleted_total",
		Help: "Total number of expired records deleted by the sweeper",
	})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenbin_sweep_errors_total",
		Help: "Total number of errors encountered during sweeps",
	})

	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screenbin_sweep_duration_seconds",
		Help:    "Duration of sweep runs in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)
