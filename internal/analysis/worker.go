package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	"github.com/mrodrigues22/thumbs-up/internal/core/vision"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
	"github.com/mrodrigues22/thumbs-up/internal/platform/worker"
)

const (
	defaultMaxAttempts   = 3
	defaultRetryBaseWait = time.Second
	retryDelayMultiplier = 2
	logFieldAttempt      = "attempt"
	opProcessSubmission  = "process submission"
)

// Analyzer runs one submission's analysis and records terminal failures.
// Implemented by Extractor.
type Analyzer interface {
	Analyze(ctx context.Context, submissionID string) (*domain.ContentFeature, error)
	MarkFailed(ctx context.Context, submissionID, reason string) error
}

// WorkerConfig tunes the retry behavior of the analysis worker.
type WorkerConfig struct {
	// MaxAttempts is the number of tries per dequeued item, including the
	// first.
	MaxAttempts int

	// RetryBaseWait is the delay before the first retry; it doubles on each
	// subsequent one.
	RetryBaseWait time.Duration
}

// Worker drains the analysis queue. One item's failure never stops the
// loop: transient errors are retried with exponential backoff, everything
// else is recorded as a failed analysis and the worker moves on.
type Worker struct {
	queue    *Queue
	analyzer Analyzer
	cfg      WorkerConfig
	logger   *zerolog.Logger
}

// NewWorker creates an analysis worker.
func NewWorker(queue *Queue, analyzer Analyzer, cfg WorkerConfig, logger *zerolog.Logger) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.RetryBaseWait <= 0 {
		cfg.RetryBaseWait = defaultRetryBaseWait
	}

	return &Worker{
		queue:    queue,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run consumes the queue until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("analysis worker starting")
	defer w.logger.Info().Msg("analysis worker stopped")

	for {
		submissionID, err := w.queue.Dequeue(ctx)
		if err != nil {
			return fmt.Errorf("analysis worker: %w", err)
		}

		w.processSubmission(ctx, submissionID)
	}
}

// processSubmission runs the retry loop for one dequeued item.
func (w *Worker) processSubmission(ctx context.Context, submissionID string) {
	defer worker.RecoverPanic(w.logger, opProcessSubmission)

	start := time.Now()

	feature, err := w.analyzeWithRetries(ctx, submissionID)

	switch {
	case err == nil:
		observability.AnalysesTotal.WithLabelValues(string(feature.Status)).Inc()
		observability.AnalysisDurationSeconds.Observe(time.Since(start).Seconds())

		w.logger.Debug().
			Str(logFieldSubmission, submissionID).
			Str("status", string(feature.Status)).
			Msg("submission analyzed")

	case errors.Is(err, context.Canceled):
		// Shutting down; leave the item for the backfill scanner.

	default:
		observability.AnalysesTotal.WithLabelValues(string(domain.AnalysisStatusFailed)).Inc()

		w.logger.Error().Err(err).Str(logFieldSubmission, submissionID).Msg("analysis failed")

		if markErr := w.analyzer.MarkFailed(ctx, submissionID, err.Error()); markErr != nil {
			w.logger.Error().Err(markErr).Str(logFieldSubmission, submissionID).Msg("failed to record analysis failure")
		}
	}
}

// analyzeWithRetries retries transient failures with exponential backoff,
// doubling the delay each attempt. Non-transient errors escalate
// immediately.
func (w *Worker) analyzeWithRetries(ctx context.Context, submissionID string) (*domain.ContentFeature, error) {
	var lastErr error

	delay := w.cfg.RetryBaseWait

	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			observability.AnalysisRetriesTotal.Inc()

			w.logger.Debug().
				Str(logFieldSubmission, submissionID).
				Int(logFieldAttempt, attempt).
				Dur("delay", delay).
				Msg("retrying analysis")

			if err := worker.Wait(ctx, delay); err != nil {
				return nil, err
			}

			delay *= retryDelayMultiplier
		}

		feature, err := w.analyzer.Analyze(ctx, submissionID)
		if err == nil {
			return feature, nil
		}

		lastErr = err

		if !vision.IsTransient(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}
