package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbsup_analyses_total",
		Help: "The total number of submission analyses by resulting status",
	}, []string{"status"})

	AnalysisRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbsup_analysis_retries_total",
		Help: "The total number of transient-failure retries in the analysis worker",
	})

	AnalysisDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "thumbsup_analysis_duration_seconds",
		Help:    "Duration of a full submission analysis",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "thumbsup_analysis_queue_depth",
		Help: "Number of submission ids waiting in the analysis queue",
	})

	BackfillEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbsup_backfill_enqueued_total",
		Help: "The total number of submissions re-enqueued by the backfill scanner",
	})

	VisionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thumbsup_vision_request_duration_seconds",
		Help:    "Duration of OCR and theme extraction requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	SummaryRebuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbsup_summary_rebuilds_total",
		Help: "Client summary cache outcomes (hit, rebuild, empty)",
	}, []string{"outcome"})

	PredictionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "thumbsup_predictions_total",
		Help: "Approval predictions by outcome (computed, insufficient_signal)",
	}, []string{"outcome"})

	WebhookDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "thumbsup_webhook_duplicates_total",
		Help: "The total number of duplicate webhook events absorbed by the ledger",
	})
)
