package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
	"github.com/mrodrigues22/thumbs-up/internal/core/vision"
)

const logFieldSubmission = "submission_id"

// ExtractorRepository is the storage surface the extractor needs.
type ExtractorRepository interface {
	ListMediaFiles(ctx context.Context, submissionID string) ([]domain.MediaFile, error)
	GetContentFeature(ctx context.Context, submissionID string) (*domain.ContentFeature, error)
	UpsertContentFeature(ctx context.Context, feature *domain.ContentFeature) error
}

// ErrAllImagesFailed is returned when every image of a submission failed
// analysis. The worker decides whether to retry or record the failure.
var ErrAllImagesFailed = errors.New("all image analyses failed")

// Extractor orchestrates OCR and theme extraction for one submission and
// persists the resulting content feature.
type Extractor struct {
	repo   ExtractorRepository
	vision vision.Capabilities
	clock  func() time.Time
	locks  *keyedMutex
	logger *zerolog.Logger
}

// NewExtractor creates a content feature extractor.
func NewExtractor(repo ExtractorRepository, capabilities vision.Capabilities, logger *zerolog.Logger) *Extractor {
	return &Extractor{
		repo:   repo,
		vision: capabilities,
		clock:  time.Now,
		locks:  newKeyedMutex(),
		logger: logger,
	}
}

// Analyze runs the full extraction for one submission and upserts the
// resulting feature. It is idempotent and re-invocable from any state;
// calls for the same submission id are serialized by a per-id lock so
// partial writes never interleave.
//
// Per-image failures are tolerated: a failing image contributes nothing.
// Only when every image fails does Analyze return ErrAllImagesFailed,
// wrapping the last cause so the caller can classify it.
func (e *Extractor) Analyze(ctx context.Context, submissionID string) (*domain.ContentFeature, error) {
	unlock := e.locks.Lock(submissionID)
	defer unlock()

	media, err := e.repo.ListMediaFiles(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list media files: %w", err)
	}

	images := filterImages(media)
	if len(images) == 0 {
		return e.upsertResult(ctx, &domain.ContentFeature{
			SubmissionID: submissionID,
			Status:       domain.AnalysisStatusNoImages,
			LastAnalyzed: e.clock(),
		})
	}

	if err := e.ensurePendingRow(ctx, submissionID); err != nil {
		return nil, err
	}

	res, err := e.analyzeImages(ctx, images)
	if err != nil {
		// Transient capability failure: fail this attempt without recording
		// a result so the worker can retry the whole submission.
		return nil, err
	}

	if res.failures == len(images) {
		return nil, fmt.Errorf("%w: %w", ErrAllImagesFailed, res.lastErr)
	}

	ocrText := strings.Join(res.texts, "\n")
	now := e.clock()

	if ocrText == "" && res.combined.IsEmpty() {
		return e.upsertResult(ctx, &domain.ContentFeature{
			SubmissionID: submissionID,
			Status:       domain.AnalysisStatusNoSignals,
			LastAnalyzed: now,
		})
	}

	return e.upsertResult(ctx, &domain.ContentFeature{
		SubmissionID: submissionID,
		OCRText:      ocrText,
		HasOCRText:   ocrText != "",
		Insights:     res.combined,
		Status:       domain.AnalysisStatusCompleted,
		ExtractedAt:  now,
		LastAnalyzed: now,
	})
}

// MarkFailed records a terminal analysis failure with its reason.
func (e *Extractor) MarkFailed(ctx context.Context, submissionID, reason string) error {
	unlock := e.locks.Lock(submissionID)
	defer unlock()

	feature := &domain.ContentFeature{
		SubmissionID:  submissionID,
		Status:        domain.AnalysisStatusFailed,
		FailureReason: reason,
		LastAnalyzed:  e.clock(),
	}

	if err := e.repo.UpsertContentFeature(ctx, feature); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	return nil
}

// imageResults accumulates per-image outcomes of one analysis attempt.
type imageResults struct {
	texts    []string
	combined insights.ThemeInsights
	failures int
	lastErr  error
}

// analyzeImages runs OCR and theme extraction per image, independently.
// One permanently bad image must not fail the whole submission; its
// contribution is treated as empty. Transient errors abort the attempt so
// the caller can retry it wholesale.
func (e *Extractor) analyzeImages(ctx context.Context, images []domain.MediaFile) (*imageResults, error) {
	res := &imageResults{}

	var perImage []insights.ThemeInsights

	for _, img := range images {
		text, textErr := e.vision.ExtractText(ctx, img.Path)
		if vision.IsTransient(textErr) {
			return nil, fmt.Errorf("ocr %s: %w", img.Path, textErr)
		}

		themes, themesErr := e.vision.ExtractThemes(ctx, img.Path)
		if vision.IsTransient(themesErr) {
			return nil, fmt.Errorf("extract themes %s: %w", img.Path, themesErr)
		}

		if textErr != nil {
			res.lastErr = textErr

			e.logger.Warn().Err(textErr).Str("path", img.Path).Msg("ocr failed for image")
		} else if text != "" {
			res.texts = append(res.texts, text)
		}

		if themesErr != nil {
			res.lastErr = themesErr

			e.logger.Warn().Err(themesErr).Str("path", img.Path).Msg("theme extraction failed for image")
		} else {
			perImage = append(perImage, themes)
		}

		if textErr != nil && themesErr != nil {
			res.failures++
		}
	}

	res.combined = insights.Combine(perImage...)

	return res, nil
}

// ensurePendingRow lazily creates the feature row on the first analysis
// attempt, so the backfill scanner can tell "in progress" from "never seen".
func (e *Extractor) ensurePendingRow(ctx context.Context, submissionID string) error {
	_, err := e.repo.GetContentFeature(ctx, submissionID)
	if err == nil {
		return nil
	}

	if !errors.Is(err, coreerrors.ErrFeatureNotFound) {
		return fmt.Errorf("get content feature: %w", err)
	}

	pending := &domain.ContentFeature{
		SubmissionID: submissionID,
		Status:       domain.AnalysisStatusPending,
		LastAnalyzed: e.clock(),
	}

	if err := e.repo.UpsertContentFeature(ctx, pending); err != nil {
		return fmt.Errorf("create pending feature: %w", err)
	}

	return nil
}

func (e *Extractor) upsertResult(ctx context.Context, feature *domain.ContentFeature) (*domain.ContentFeature, error) {
	if err := e.repo.UpsertContentFeature(ctx, feature); err != nil {
		return nil, fmt.Errorf("upsert content feature: %w", err)
	}

	return feature, nil
}

func filterImages(media []domain.MediaFile) []domain.MediaFile {
	var images []domain.MediaFile

	for _, m := range media {
		if m.IsImage() {
			images = append(images, m)
		}
	}

	return images
}
