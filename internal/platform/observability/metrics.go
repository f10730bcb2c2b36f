package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeRetry       = "retry"
	OutcomeRateLimited = "rate_limited"
	OutcomeExhausted   = "exhausted"
)

// Pipeline record stages.
const (
	StageExtracted   = "extracted"
	StageSkipped     = "skipped"
	StageTransformed = "transformed"
	StageFailed      = "failed"
	StageLoaded      = "loaded"
)

var (
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_etl_api_requests_total",
		Help: "Page requests sent to the assembly API, by outcome",
	}, []string{"resource", "outcome"})

	APIRecordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_etl_api_records_fetched_total",
		Help: "Raw records returned by the assembly API",
	}, []string{"resource"})

	PipelineRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_etl_pipeline_records_total",
		Help: "Records seen by the pipeline, by stage",
	}, []string{"kind", "stage"})

	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_etl_pipeline_runs_total",
		Help: "Pipeline runs, by final state",
	}, []string{"kind", "state"})

	PipelineRunDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "questions_etl_pipeline_run_duration_seconds",
		Help:    "Wall time of a pipeline run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"kind"})

	PipelineLastSuccessTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "questions_etl_pipeline_last_success_timestamp_seconds",
		Help: "Unix time of the last run that reached the closed state",
	}, []string{"kind"})

	LoaderBatchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "questions_etl_loader_batch_duration_seconds",
		Help:    "Duration of one upsert statement",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"table"})

	ThemeAssignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "questions_etl_theme_assignments_total",
		Help: "Theme labels assigned, by producing path",
	}, []string{"source"})
)
