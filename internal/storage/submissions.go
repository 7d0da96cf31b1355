package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
)

// GetSubmission returns one submission by id.
func (db *DB) GetSubmission(ctx context.Context, submissionID string) (*domain.Submission, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, client_id, title, created_at
		FROM submissions
		WHERE id = $1
	`, submissionID)

	var (
		id        string
		clientID  string
		title     pgtype.Text
		createdAt pgtype.Timestamptz
	)

	if err := row.Scan(&id, &clientID, &title, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrSubmissionNotFound
		}

		return nil, fmt.Errorf("get submission: %w", err)
	}

	return &domain.Submission{
		ID:        id,
		ClientID:  clientID,
		Title:     fromText(title),
		CreatedAt: fromTimestamptz(createdAt),
	}, nil
}

// ListMediaFiles returns a submission's media files in upload order.
func (db *DB) ListMediaFiles(ctx context.Context, submissionID string) ([]domain.MediaFile, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, submission_id, path, content_type, position
		FROM media_files
		WHERE submission_id = $1
		ORDER BY position ASC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query media files: %w", err)
	}
	defer rows.Close()

	var res []domain.MediaFile

	for rows.Next() {
		var m domain.MediaFile

		if err := rows.Scan(&m.ID, &m.SubmissionID, &m.Path, &m.ContentType, &m.Position); err != nil {
			return nil, fmt.Errorf("scan media file: %w", err)
		}

		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media files: %w", err)
	}

	return res, nil
}

// ListSubmissionsNeedingAnalysis returns ids of submissions whose content
// feature is missing, or still pending since before the cutoff. Submissions
// whose feature reached a terminal state are never returned; the backfill
// scanner relies on this filter.
func (db *DB) ListSubmissionsNeedingAnalysis(ctx context.Context, pendingBefore time.Time, limit int) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT s.id
		FROM submissions s
		LEFT JOIN content_features cf ON cf.submission_id = s.id
		WHERE (cf.submission_id IS NULL AND s.created_at < $1)
		   OR (cf.status = 'pending' AND cf.last_analyzed_at < $1)
		ORDER BY s.created_at ASC
		LIMIT $2
	`, pendingBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions needing analysis: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string

		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submission id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission ids: %w", err)
	}

	return ids, nil
}
