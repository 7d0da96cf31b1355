package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
	"github.com/mrodrigues22/thumbs-up/internal/platform/worker"
)

const (
	defaultBackfillInterval = 10 * time.Minute
	defaultGracePeriod      = 15 * time.Minute
	defaultBackfillBatch    = 100
)

// ScannerRepository is the storage surface the backfill scanner needs.
type ScannerRepository interface {
	ListSubmissionsNeedingAnalysis(ctx context.Context, pendingBefore time.Time, limit int) ([]string, error)
}

// Enqueuer accepts submission ids for analysis. Implemented by Queue.
type Enqueuer interface {
	Enqueue(submissionID string)
}

// ScannerConfig tunes the backfill scanner.
type ScannerConfig struct {
	// Interval is the scan period.
	Interval time.Duration

	// GracePeriod is how long a submission may stay unanalyzed before the
	// scanner picks it up; it keeps the scanner from racing fresh enqueues.
	GracePeriod time.Duration

	// BatchSize caps how many submissions one tick re-enqueues.
	BatchSize int
}

// Scanner periodically re-enqueues submissions whose analysis never ran or
// got stuck, compensating for the queue's non-durable at-least-once
// semantics. Duplicate enqueues are safe; the consumer is idempotent.
type Scanner struct {
	repo   ScannerRepository
	queue  Enqueuer
	cfg    ScannerConfig
	clock  func() time.Time
	logger *zerolog.Logger
}

// NewScanner creates a backfill scanner.
func NewScanner(repo ScannerRepository, queue Enqueuer, cfg ScannerConfig, logger *zerolog.Logger) *Scanner {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultBackfillInterval
	}

	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBackfillBatch
	}

	return &Scanner{
		repo:   repo,
		queue:  queue,
		cfg:    cfg,
		clock:  time.Now,
		logger: logger,
	}
}

// Run scans on a fixed period until the context is canceled.
func (s *Scanner) Run(ctx context.Context) error {
	return worker.TickerLoop(ctx, worker.TickerConfig{
		Name:       "backfill-scanner",
		Interval:   s.cfg.Interval,
		OnTick:     s.scan,
		RunOnStart: true,
		Logger:     s.logger,
	})
}

// scan performs one backfill pass.
func (s *Scanner) scan(ctx context.Context) {
	defer worker.RecoverPanic(s.logger, "backfill scan")

	cutoff := s.clock().Add(-s.cfg.GracePeriod)

	ids, err := s.repo.ListSubmissionsNeedingAnalysis(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("backfill scan failed")

		return
	}

	for _, id := range ids {
		s.queue.Enqueue(id)
	}

	if len(ids) > 0 {
		observability.BackfillEnqueuedTotal.Add(float64(len(ids)))

		s.logger.Info().Int("count", len(ids)).Msg("backfill re-enqueued submissions")
	}
}
