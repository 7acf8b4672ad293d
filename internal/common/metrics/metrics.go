// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_http_requests_total",
			Help: "Total number of API requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wizard_http_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_extractions_total",
			Help: "Answers interpreted by question type and outcome",
		},
		[]string{"question_type", "outcome"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_commands_total",
			Help: "Navigation commands recognised in user input",
		},
		[]string{"command"},
	)

	AssistantCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_assistant_calls_total",
			Help: "Remote assistant provider calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	AssistantCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wizard_assistant_call_duration_seconds",
			Help: "Duration of remote assistant provider calls in seconds",
		},
		[]string{"provider"},
	)

	AnalyticsEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_analytics_events_total",
			Help: "Analytics events recorded by event type and store",
		},
		[]string{"event_type", "store"},
	)

	ConfigurationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_configurations_total",
			Help: "Configuration writes by operation",
		},
		[]string{"operation"},
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
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
