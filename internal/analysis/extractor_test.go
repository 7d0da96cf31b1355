package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
	"github.com/mrodrigues22/thumbs-up/internal/core/vision"
)

// mockRepo is an in-memory ExtractorRepository.
type mockRepo struct {
	mu       sync.Mutex
	media    map[string][]domain.MediaFile
	features map[string]*domain.ContentFeature
	upserts  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		media:    make(map[string][]domain.MediaFile),
		features: make(map[string]*domain.ContentFeature),
	}
}

func (m *mockRepo) ListMediaFiles(_ context.Context, submissionID string) ([]domain.MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.media[submissionID], nil
}

func (m *mockRepo) GetContentFeature(_ context.Context, submissionID string) (*domain.ContentFeature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.features[submissionID]
	if !ok {
		return nil, coreerrors.ErrFeatureNotFound
	}

	copied := *f

	return &copied, nil
}

func (m *mockRepo) UpsertContentFeature(_ context.Context, feature *domain.ContentFeature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *feature
	m.features[feature.SubmissionID] = &copied
	m.upserts++

	return nil
}

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func image(sub, path string) domain.MediaFile {
	return domain.MediaFile{SubmissionID: sub, Path: path, ContentType: "image/jpeg"}
}

func TestAnalyzeNoImages(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{
		{SubmissionID: "s1", Path: "doc.pdf", ContentType: "application/pdf"},
	}

	mock := &vision.Mock{}
	e := NewExtractor(repo, mock, testLogger())

	feature, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisStatusNoImages, feature.Status)

	// No image media means no capability calls at all.
	require.Empty(t, mock.TextCalls())
	require.Empty(t, mock.ThemesCalls())
}

func TestAnalyzeNoSignals(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "a.jpg")}

	mock := &vision.Mock{} // returns empty text and empty themes
	e := NewExtractor(repo, mock, testLogger())

	feature, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisStatusNoSignals, feature.Status)
}

func TestAnalyzeCompletedCombinesImages(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "a.jpg"), image("s1", "b.jpg")}

	mock := &vision.Mock{
		Texts: map[string]string{"a.jpg": "SALE", "b.jpg": "50% OFF"},
		Themes: map[string]insights.ThemeInsights{
			"a.jpg": {Colors: []string{"red"}, Vibes: []string{"bold"}},
			"b.jpg": {Colors: []string{"RED", "white"}},
		},
	}

	e := NewExtractor(repo, mock, testLogger())

	feature, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisStatusCompleted, feature.Status)
	require.Equal(t, "SALE\n50% OFF", feature.OCRText)
	require.Equal(t, []string{"red", "white"}, feature.Insights.Colors)
	require.Equal(t, []string{"bold"}, feature.Insights.Vibes)
	require.False(t, feature.ExtractedAt.IsZero())
}

func TestAnalyzePartialImageFailureTolerated(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "bad.jpg"), image("s1", "good.jpg")}

	permanent := errors.New("unsupported image format")

	mock := &vision.Mock{
		TextFunc: func(_ context.Context, path string) (string, error) {
			if path == "bad.jpg" {
				return "", permanent
			}

			return "HELLO", nil
		},
		ThemesFunc: func(_ context.Context, path string) (insights.ThemeInsights, error) {
			if path == "bad.jpg" {
				return insights.ThemeInsights{}, permanent
			}

			return insights.ThemeInsights{Subjects: []string{"poster"}}, nil
		},
	}

	e := NewExtractor(repo, mock, testLogger())

	feature, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisStatusCompleted, feature.Status)
	require.Equal(t, "HELLO", feature.OCRText)
	require.Equal(t, []string{"poster"}, feature.Insights.Subjects)
}

func TestAnalyzeAllImagesFailed(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "a.jpg")}

	permanent := errors.New("decode error")

	mock := &vision.Mock{
		TextFunc: func(_ context.Context, _ string) (string, error) {
			return "", permanent
		},
		ThemesFunc: func(_ context.Context, _ string) (insights.ThemeInsights, error) {
			return insights.ThemeInsights{}, permanent
		},
	}

	e := NewExtractor(repo, mock, testLogger())

	_, err := e.Analyze(context.Background(), "s1")
	require.ErrorIs(t, err, ErrAllImagesFailed)
	require.ErrorIs(t, err, permanent)

	// The attempt left the lazily created row pending for the backfill
	// scanner; no terminal state was recorded.
	stored := repo.features["s1"]
	require.NotNil(t, stored)
	require.Equal(t, domain.AnalysisStatusPending, stored.Status)
}

func TestAnalyzeTransientErrorAbortsAttempt(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "a.jpg")}

	mock := &vision.Mock{
		TextFunc: func(_ context.Context, _ string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}

	e := NewExtractor(repo, mock, testLogger())

	_, err := e.Analyze(context.Background(), "s1")
	require.Error(t, err)
	require.True(t, vision.IsTransient(err))
	require.NotErrorIs(t, err, ErrAllImagesFailed)
}

func TestAnalyzeIdempotentFromTerminalState(t *testing.T) {
	repo := newMockRepo()
	repo.media["s1"] = []domain.MediaFile{image("s1", "a.jpg")}

	mock := &vision.Mock{
		Texts:  map[string]string{"a.jpg": "MENU"},
		Themes: map[string]insights.ThemeInsights{"a.jpg": {Keywords: []string{"food"}}},
	}

	e := NewExtractor(repo, mock, testLogger())

	first, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, domain.AnalysisStatusCompleted, first.Status)

	second, err := e.Analyze(context.Background(), "s1")
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)
	require.Equal(t, first.OCRText, second.OCRText)
	require.Equal(t, first.Insights, second.Insights)
}

func TestMarkFailedRecordsReason(t *testing.T) {
	repo := newMockRepo()
	e := NewExtractor(repo, &vision.Mock{}, testLogger())

	require.NoError(t, e.MarkFailed(context.Background(), "s1", "retries exhausted: timeout"))

	stored := repo.features["s1"]
	require.NotNil(t, stored)
	require.Equal(t, domain.AnalysisStatusFailed, stored.Status)
	require.Equal(t, "retries exhausted: timeout", stored.FailureReason)
}
