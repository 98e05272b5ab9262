// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_computed_total",
			Help: "Total number of churn predictions computed",
		},
		[]string{"risk_level"},
	)

	PredictionsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_predictions_failed_total",
			Help: "Total number of prediction runs that failed",
		},
		[]string{"error_code"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "churn_prediction_duration_seconds",
			Help: "Duration of a single prediction run in seconds",
		},
		[]string{"degraded"},
	)

	BatchPredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_batch_prediction_duration_seconds",
			Help:    "Duration of an organization batch prediction in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	TacticsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_tactics_executed_total",
			Help: "Total number of retention tactics dispatched",
		},
		[]string{"tactic_type", "status"},
	)

	EscalationsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retention_escalations_triggered_total",
			Help: "Total number of escalations raised during plan execution",
		},
		[]string{"escalation_level"},
	)

	PlansActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retention_plans_active",
			Help: "Number of retention plans currently executing",
		},
	)

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
		[]string{"task_type"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
