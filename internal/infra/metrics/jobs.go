package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(bulkJobsTotal, bulkRowsTotal, pinsGeneratedTotal, jobDurationSec) }

var bulkJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bulk_jobs_total",
		Help: "Bulk generation jobs finished, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed', 'cancelled'
)

var bulkRowsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bulk_rows_total",
		Help: "Bulk rows processed, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var pinsGeneratedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "pins_generated_total",
		Help: "Total generated pins persisted.",
	},
)

var jobDurationSec = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "bulk_job_duration_seconds",
		Help:    "Wall-clock duration of a bulk job run.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	},
)

func IncBulkJob(status string) { bulkJobsTotal.WithLabelValues(norm(status)).Inc() }

func IncBulkRow(status string) { bulkRowsTotal.WithLabelValues(norm(status)).Inc() }

func IncPinsGenerated(n int) { pinsGeneratedTotal.Add(float64(n)) }

func ObserveJobDuration(secs float64) { jobDurationSec.Observe(secs) }
