package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
)

// ReviewedSubmission pairs a review outcome with the reviewed submission's
// extracted insights. Insights are empty when the submission was never
// analyzed or produced no signals.
type ReviewedSubmission struct {
	SubmissionID string
	Status       domain.ReviewStatus
	Comment      string
	Insights     insights.ThemeInsights
}

// GetReviewCounts returns a fresh snapshot of a client's review tallies,
// computed from the review history rather than any cached value.
func (db *DB) GetReviewCounts(ctx context.Context, clientID string) (domain.ReviewCounts, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'approved') AS approved_count,
		       COUNT(*) FILTER (WHERE status = 'rejected') AS rejected_count,
		       COUNT(*) AS total_count
		FROM reviews
		WHERE client_id = $1
	`, clientID)

	var approved, rejected, total int64

	if err := row.Scan(&approved, &rejected, &total); err != nil {
		return domain.ReviewCounts{}, fmt.Errorf("get review counts: %w", err)
	}

	return domain.ReviewCounts{
		Approved: int(approved),
		Rejected: int(rejected),
		Total:    int(total),
	}, nil
}

// ListReviewedSubmissions returns all of a client's reviewed submissions
// joined with their content features, oldest review first.
func (db *DB) ListReviewedSubmissions(ctx context.Context, clientID string) ([]ReviewedSubmission, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT r.submission_id,
		       r.status,
		       r.comment,
		       cf.insights
		FROM reviews r
		LEFT JOIN content_features cf ON cf.submission_id = r.submission_id
		WHERE r.client_id = $1
		ORDER BY r.reviewed_at ASC
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query reviewed submissions: %w", err)
	}
	defer rows.Close()

	var res []ReviewedSubmission

	for rows.Next() {
		var (
			submissionID string
			status       string
			comment      pgtype.Text
			insightsJSON []byte
		)

		if err := rows.Scan(&submissionID, &status, &comment, &insightsJSON); err != nil {
			return nil, fmt.Errorf("scan reviewed submission: %w", err)
		}

		var parsed insights.ThemeInsights
		if len(insightsJSON) > 0 {
			if err := json.Unmarshal(insightsJSON, &parsed); err != nil {
				return nil, fmt.Errorf("unmarshal insights: %w", err)
			}
		}

		res = append(res, ReviewedSubmission{
			SubmissionID: submissionID,
			Status:       domain.ReviewStatus(status),
			Comment:      fromText(comment),
			Insights:     parsed,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewed submissions: %w", err)
	}

	return res, nil
}
