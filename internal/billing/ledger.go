// Package billing provides the idempotency ledger for externally delivered
// billing webhook events.
package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
)

const logFieldEvent = "event_id"

// LedgerRepository is the storage surface the ledger needs.
type LedgerRepository interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	InsertProcessedEvent(ctx context.Context, evt *domain.ProcessedWebhookEvent) (bool, error)
}

// Ledger makes webhook handling idempotent. The insert's unique key on the
// event id is the authoritative gate, not any prior read: two concurrent
// deliveries of the same event race on the insert and exactly one wins.
type Ledger struct {
	repo   LedgerRepository
	logger *zerolog.Logger
}

// NewLedger creates the webhook event ledger.
func NewLedger(repo LedgerRepository, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		logger: logger,
	}
}

// IsProcessed reports whether the event id is already recorded. Handlers use
// it to skip work early; MarkProcessed remains the authoritative check.
func (l *Ledger) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	processed, err := l.repo.IsEventProcessed(ctx, eventID)
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}

	return processed, nil
}

// MarkProcessed records the event in the ledger. A duplicate delivery
// returns coreerrors.ErrEventAlreadyProcessed and leaves exactly one row;
// callers must not apply side effects when they get it.
func (l *Ledger) MarkProcessed(ctx context.Context, evt domain.ProcessedWebhookEvent) error {
	inserted, err := l.repo.InsertProcessedEvent(ctx, &evt)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if !inserted {
		observability.WebhookDuplicatesTotal.Inc()

		l.logger.Info().
			Str(logFieldEvent, evt.EventID).
			Str("event_type", evt.EventType).
			Msg("duplicate webhook event ignored")

		return fmt.Errorf("event %s: %w", evt.EventID, coreerrors.ErrEventAlreadyProcessed)
	}

	return nil
}
