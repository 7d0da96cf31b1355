package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
)

// GetContentFeature returns the feature row for a submission, or
// coreerrors.ErrFeatureNotFound when no analysis has been recorded yet.
func (db *DB) GetContentFeature(ctx context.Context, submissionID string) (*domain.ContentFeature, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT submission_id,
		       ocr_text,
		       insights,
		       status,
		       failure_reason,
		       extracted_at,
		       last_analyzed_at
		FROM content_features
		WHERE submission_id = $1
	`, submissionID)

	feature, err := scanContentFeature(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coreerrors.ErrFeatureNotFound
		}

		return nil, fmt.Errorf("get content feature: %w", err)
	}

	return feature, nil
}

// UpsertContentFeature writes the feature row for a submission, replacing any
// previous analysis result. The upsert key is submission_id.
func (db *DB) UpsertContentFeature(ctx context.Context, feature *domain.ContentFeature) error {
	if feature == nil {
		return nil
	}

	insightsJSON, err := json.Marshal(feature.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	var ocrText pgtype.Text
	if feature.HasOCRText {
		ocrText = pgtype.Text{String: SanitizeUTF8(feature.OCRText), Valid: true}
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO content_features (
			submission_id,
			ocr_text,
			insights,
			status,
			failure_reason,
			extracted_at,
			last_analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (submission_id) DO UPDATE SET
			ocr_text = EXCLUDED.ocr_text,
			insights = EXCLUDED.insights,
			status = EXCLUDED.status,
			failure_reason = EXCLUDED.failure_reason,
			extracted_at = EXCLUDED.extracted_at,
			last_analyzed_at = EXCLUDED.last_analyzed_at
	`, feature.SubmissionID, ocrText, insightsJSON, string(feature.Status),
		toText(feature.FailureReason), toTimestamptz(feature.ExtractedAt), toTimestamptz(feature.LastAnalyzed))
	if err != nil {
		return fmt.Errorf("upsert content feature: %w", err)
	}

	return nil
}

type featureRow interface {
	Scan(dest ...any) error
}

func scanContentFeature(row featureRow) (*domain.ContentFeature, error) {
	var (
		submissionID  string
		ocrText       pgtype.Text
		insightsJSON  []byte
		status        string
		failureReason pgtype.Text
		extractedAt   pgtype.Timestamptz
		lastAnalyzed  pgtype.Timestamptz
	)

	if err := row.Scan(&submissionID, &ocrText, &insightsJSON, &status, &failureReason, &extractedAt, &lastAnalyzed); err != nil {
		return nil, err
	}

	var parsed insights.ThemeInsights
	if len(insightsJSON) > 0 {
		if err := json.Unmarshal(insightsJSON, &parsed); err != nil {
			return nil, fmt.Errorf("unmarshal insights: %w", err)
		}
	}

	return &domain.ContentFeature{
		SubmissionID:  submissionID,
		OCRText:       ocrText.String,
		HasOCRText:    ocrText.Valid,
		Insights:      parsed,
		Status:        domain.AnalysisStatus(status),
		FailureReason: fromText(failureReason),
		ExtractedAt:   fromTimestamptz(extractedAt),
		LastAnalyzed:  fromTimestamptz(lastAnalyzed),
	}, nil
}
