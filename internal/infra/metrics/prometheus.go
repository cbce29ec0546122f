package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "titledoctor_stage_processed_total",
		Help: "Total number of stage executions, by stage and outcome",
	}, []string{"stage", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "titledoctor_stage_duration_seconds",
		Help:    "Duration of one stage execution including the external call",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})

	EmailsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "titledoctor_emails_sent_total",
		Help: "Total number of emails sent, by kind (report or failure)",
	}, []string{"kind"})

	VersionConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titledoctor_version_conflicts_total",
		Help: "Conditional job writes lost to a concurrent or duplicate stage execution",
	})

	JobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titledoctor_jobs_submitted_total",
		Help: "Total number of jobs accepted at intake",
	})

	StaleJobsReapedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "titledoctor_stale_jobs_reaped_total",
		Help: "Jobs failed by the sweeper after stalling in a non-terminal state",
	})
)
