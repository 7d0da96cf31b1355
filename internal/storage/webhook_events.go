package db

import (
	"context"
	"fmt"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
)

// IsEventProcessed reports whether a webhook event id is already in the
// ledger. Callers must still treat InsertProcessedEvent as the authoritative
// gate; this read exists to skip work early.
func (db *DB) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_webhook_events WHERE event_id = $1)
	`, eventID)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}

	return exists, nil
}

// InsertProcessedEvent records a webhook event id. Returns false when the id
// was already present; the unique key makes the insert itself the
// idempotency gate, so a concurrent duplicate can never double-record.
func (db *DB) InsertProcessedEvent(ctx context.Context, evt *domain.ProcessedWebhookEvent) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO processed_webhook_events (
			event_id,
			event_type,
			occurred_at,
			recorded_at,
			subscription_id,
			customer_id
		) VALUES ($1, $2, $3, now(), $4, $5)
		ON CONFLICT (event_id) DO NOTHING
	`, evt.EventID, evt.EventType, toTimestamptz(evt.OccurredAt), toText(evt.SubscriptionID), toText(evt.CustomerID))
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
