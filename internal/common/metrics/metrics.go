// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// OccupancyClamped counts occupy/release requests that were clamped at a
	// capacity bound instead of applied in full. Clamping is deliberate
	// permissive policy; the counter keeps it observable.
	OccupancyClamped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zone_occupancy_clamped_total",
			Help: "Occupy/release operations clamped at zone capacity bounds",
		},
		[]string{"operation"},
	)

	LeadsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_routed_total",
			Help: "Leads created, labelled by kind and routing outcome",
		},
		[]string{"kind", "outcome"},
	)
)
