package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session Metrics
var (
	// SessionsActive tracks the number of live sessions in the registry
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resume_sessions_active",
			Help: "Number of live résumé sessions",
		},
	)

	// SessionsEvicted tracks sessions torn down by the idle sweeper
	SessionsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "resume_sessions_evicted_total",
			Help: "Total sessions torn down after being idle",
		},
	)
)

// Intake Metrics
var (
	// ResumesAccepted tracks files that passed intake, by source
	ResumesAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_intake_accepted_total",
			Help: "Total résumé files accepted at intake by source",
		},
		[]string{"source"},
	)

	// ResumesRejected tracks files or batches refused at intake, by reason
	ResumesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_intake_rejected_total",
			Help: "Total résumé files rejected at intake by reason",
		},
		[]string{"reason"},
	)
)

// Submission Metrics
var (
	// SubmissionsTotal tracks finished submissions by action and outcome
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_submissions_total",
			Help: "Total analysis submissions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// SubmissionDuration tracks how long the analysis service took to answer
	SubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_submission_duration_seconds",
			Help:    "Analysis submission duration in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"action"},
	)

	// SubmissionsInFlight tracks pending submissions across all sessions
	SubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resume_submissions_in_flight",
			Help: "Number of analysis submissions awaiting a result",
		},
	)
)

// Event Metrics
var (
	// EventPublishErrors tracks session updates that could not be delivered, by sink
	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_event_publish_errors_total",
			Help: "Total session update publish failures by sink",
		},
		[]string{"sink"},
	)
)

// HTTP Metrics
var (
	// HTTPErrorsTotal tracks API errors by error type
	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total HTTP errors by error type",
		},
		[]string{"type"},
	)
)
