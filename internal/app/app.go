// Package app provides the application bootstrap and runtime orchestration.
//
// The App type wires together the analysis pipeline (queue, worker, backfill
// scanner), the predictive components (summary cache, approval predictor)
// and the webhook event ledger, and exposes the entry points the HTTP layer
// calls into.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/analysis"
	"github.com/mrodrigues22/thumbs-up/internal/billing"
	"github.com/mrodrigues22/thumbs-up/internal/core/vision"
	"github.com/mrodrigues22/thumbs-up/internal/platform/config"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
	"github.com/mrodrigues22/thumbs-up/internal/predict"
	db "github.com/mrodrigues22/thumbs-up/internal/storage"
)

// App holds the application dependencies and the running pipeline handles.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	queue     *analysis.Queue
	worker    *analysis.Worker
	scanner   *analysis.Scanner
	summaries *predict.SummaryCache
	predictor *predict.Predictor
	ledger    *billing.Ledger
}

// New creates a fully wired App. The vision capability falls back to the
// in-package mock when no API key is configured, so local runs work offline.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	var capabilities vision.Capabilities
	if cfg.VisionAPIKey != "" {
		capabilities = vision.NewOpenAI(cfg, logger)
	} else {
		logger.Warn().Msg("no vision API key configured, using mock capabilities")

		capabilities = &vision.Mock{}
	}

	queue := analysis.NewQueue()
	extractor := analysis.NewExtractor(database, capabilities, logger)

	worker := analysis.NewWorker(queue, extractor, analysis.WorkerConfig{
		MaxAttempts:   cfg.AnalysisMaxAttempts,
		RetryBaseWait: cfg.AnalysisRetryBaseWait,
	}, logger)

	scanner := analysis.NewScanner(database, queue, analysis.ScannerConfig{
		Interval:    cfg.BackfillInterval,
		GracePeriod: cfg.BackfillGracePeriod,
		BatchSize:   cfg.BackfillBatchSize,
	}, logger)

	return &App{
		cfg:       cfg,
		database:  database,
		logger:    logger,
		queue:     queue,
		worker:    worker,
		scanner:   scanner,
		summaries: predict.NewSummaryCache(database, logger),
		predictor: predict.NewPredictor(database, cfg.TagMatchWeight, logger),
		ledger:    billing.NewLedger(database, logger),
	}
}

// EnqueueSubmission schedules a submission for analysis. Called by the
// submission-creation flow and by explicit reanalyze requests; safe to call
// repeatedly for the same id. The id is validated here so malformed input
// fails at the boundary instead of as a query error deep in the worker.
func (a *App) EnqueueSubmission(submissionID string) error {
	if err := uuid.Validate(submissionID); err != nil {
		return fmt.Errorf("invalid submission id %q: %w", submissionID, err)
	}

	a.queue.Enqueue(submissionID)

	return nil
}

// Summaries returns the client summary cache, for the insights API layer.
func (a *App) Summaries() *predict.SummaryCache {
	return a.summaries
}

// Predictor returns the approval predictor, for the insights API layer.
func (a *App) Predictor() *predict.Predictor {
	return a.predictor
}

// Ledger returns the webhook event ledger, for the webhook handler.
func (a *App) Ledger() *billing.Ledger {
	return a.ledger
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	server := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("health server: %w", err)
	}

	return nil
}

// Run starts the analysis worker and the backfill scanner and blocks until
// the context is canceled or either loop fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		errCh <- a.worker.Run(ctx)
	}()

	go func() {
		errCh <- a.scanner.Run(ctx)
	}()

	// Both loops only return on context cancellation or a fatal error;
	// either way the other loop must stop too.
	err := <-errCh
	cancel()

	<-errCh

	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	return nil
}
