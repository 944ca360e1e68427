// Package metrics exposes Prometheus collectors for the geoprocessing job lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_jobs_submitted_total",
		Help: "Total number of jobs submitted, by task",
	}, []string{"task"})

	SubmissionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_submission_failures_total",
		Help: "Total number of submissions that never produced a job",
	}, []string{"task"})

	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_jobs_finished_total",
		Help: "Total number of observed jobs by task and outcome",
	}, []string{"task", "outcome"})

	StatusPollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_status_polls_total",
		Help: "Total number of job status fetches",
	}, []string{"task"})

	OutputFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_output_fetches_total",
		Help: "Total number of output parameter lookups by result",
	}, []string{"task", "result"})

	JobMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geoanalysis_job_messages_total",
		Help: "Total number of relayed job progress messages by severity",
	}, []string{"task", "severity"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoanalysis_job_duration_seconds",
		Help:    "Wall-clock time from submission to final outcome",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"task"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "geoanalysis_active_jobs",
		Help: "Current number of jobs being tracked",
	})
)

// Outcome labels for JobsFinishedTotal.
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
	OutcomeCancelled  = "cancelled"
	OutcomeTimedOut   = "timed_out"
	OutcomeMalformed  = "malformed"
	OutcomeAbandoned  = "abandoned"
	OutcomeUnresolved = "unresolved"
	OutcomeError      = "error"
)
