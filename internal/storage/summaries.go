package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
)

// GetClientSummary returns the cached summary row for a client, or
// coreerrors.ErrSummaryNotFound when none has been built yet.
func (db *DB) GetClientSummary(ctx context.Context, clientID string) (*domain.ClientSummary, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT client_id,
		       summary,
		       approved_count,
		       rejected_count,
		       total_reviews,
		       updated_at
		FROM client_summaries
		WHERE client_id = $1
	`, clientID)

	var (
		id        string
		summary   string
		approved  int64
		rejected  int64
		total     int64
		updatedAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &summary, &approved, &rejected, &total, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrSummaryNotFound
		}

		return nil, fmt.Errorf("get client summary: %w", err)
	}

	return &domain.ClientSummary{
		ClientID:      id,
		Summary:       summary,
		ApprovedCount: int(approved),
		RejectedCount: int(rejected),
		TotalReviews:  int(total),
		UpdatedAt:     fromTimestamptz(updatedAt),
	}, nil
}

// UpsertClientSummary writes the summary row for a client. The stored counts
// must be the counts observed at rebuild time; staleness detection depends
// on them.
func (db *DB) UpsertClientSummary(ctx context.Context, summary *domain.ClientSummary) error {
	if summary == nil {
		return nil
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO client_summaries (
			client_id,
			summary,
			approved_count,
			rejected_count,
			total_reviews,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (client_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			approved_count = EXCLUDED.approved_count,
			rejected_count = EXCLUDED.rejected_count,
			total_reviews = EXCLUDED.total_reviews,
			updated_at = now()
	`, summary.ClientID, SanitizeUTF8(summary.Summary), summary.ApprovedCount, summary.RejectedCount, summary.TotalReviews)
	if err != nil {
		return fmt.Errorf("upsert client summary: %w", err)
	}

	return nil
}
