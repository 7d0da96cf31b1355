package predict

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
	db "github.com/mrodrigues22/thumbs-up/internal/storage"
)

// mockPredictRepo is an in-memory SummaryRepository and PredictorRepository.
type mockPredictRepo struct {
	mu        sync.Mutex
	counts    map[string]domain.ReviewCounts
	summaries map[string]*domain.ClientSummary
	reviewed  map[string][]db.ReviewedSubmission
	features  map[string]*domain.ContentFeature

	listCalls int
}

func newMockPredictRepo() *mockPredictRepo {
	return &mockPredictRepo{
		counts:    make(map[string]domain.ReviewCounts),
		summaries: make(map[string]*domain.ClientSummary),
		reviewed:  make(map[string][]db.ReviewedSubmission),
		features:  make(map[string]*domain.ContentFeature),
	}
}

func (m *mockPredictRepo) GetReviewCounts(_ context.Context, clientID string) (domain.ReviewCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.counts[clientID], nil
}

func (m *mockPredictRepo) GetClientSummary(_ context.Context, clientID string) (*domain.ClientSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.summaries[clientID]
	if !ok {
		return nil, coreerrors.ErrSummaryNotFound
	}

	copied := *s

	return &copied, nil
}

func (m *mockPredictRepo) UpsertClientSummary(_ context.Context, summary *domain.ClientSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *summary
	m.summaries[summary.ClientID] = &copied

	return nil
}

func (m *mockPredictRepo) ListReviewedSubmissions(_ context.Context, clientID string) ([]db.ReviewedSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++

	return m.reviewed[clientID], nil
}

func (m *mockPredictRepo) GetContentFeature(_ context.Context, submissionID string) (*domain.ContentFeature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.features[submissionID]
	if !ok {
		return nil, coreerrors.ErrFeatureNotFound
	}

	copied := *f

	return &copied, nil
}

func nopLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func approvedReview(sub string, tags ...string) db.ReviewedSubmission {
	return db.ReviewedSubmission{
		SubmissionID: sub,
		Status:       domain.ReviewStatusApproved,
		Insights:     insights.ThemeInsights{Keywords: tags},
	}
}

func rejectedReview(sub, comment string, tags ...string) db.ReviewedSubmission {
	return db.ReviewedSubmission{
		SubmissionID: sub,
		Status:       domain.ReviewStatusRejected,
		Comment:      comment,
		Insights:     insights.ThemeInsights{Keywords: tags},
	}
}

func TestGetOrRefreshInsufficientHistory(t *testing.T) {
	repo := newMockPredictRepo()
	cache := NewSummaryCache(repo, nopLogger())

	_, err := cache.GetOrRefresh(context.Background(), "c1")
	require.ErrorIs(t, err, coreerrors.ErrInsufficientHistory)
}

func TestGetOrRefreshBuildsAndCaches(t *testing.T) {
	repo := newMockPredictRepo()
	repo.counts["c1"] = domain.ReviewCounts{Approved: 2, Rejected: 1, Total: 3}
	repo.reviewed["c1"] = []db.ReviewedSubmission{
		approvedReview("s1", "minimal", "warm"),
		approvedReview("s2", "minimal"),
		rejectedReview("s3", "too busy", "cluttered"),
	}

	cache := NewSummaryCache(repo, nopLogger())

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	summary, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 2, summary.ApprovedCount)
	require.Equal(t, 1, summary.RejectedCount)
	require.Equal(t, 3, summary.TotalReviews)
	require.Equal(t, now, summary.UpdatedAt)
	require.Contains(t, summary.Summary, "3 reviews")
	require.Contains(t, summary.Summary, "minimal")
	require.Contains(t, summary.Summary, "cluttered")
	require.Contains(t, summary.Summary, "too busy")
	require.Equal(t, 1, repo.listCalls)

	// Unchanged counts hit the cache; no second aggregation pass.
	again, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, summary.Summary, again.Summary)
	require.Equal(t, 1, repo.listCalls)
}

func TestGetOrRefreshRebuildsWhenCountsMove(t *testing.T) {
	repo := newMockPredictRepo()
	repo.counts["c1"] = domain.ReviewCounts{Approved: 1, Rejected: 0, Total: 1}
	repo.reviewed["c1"] = []db.ReviewedSubmission{approvedReview("s1", "bright")}

	cache := NewSummaryCache(repo, nopLogger())

	_, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 1, repo.listCalls)

	// A new rejection lands between calls.
	repo.mu.Lock()
	repo.counts["c1"] = domain.ReviewCounts{Approved: 1, Rejected: 1, Total: 2}
	repo.reviewed["c1"] = append(repo.reviewed["c1"], rejectedReview("s2", "off brand", "dark"))
	repo.mu.Unlock()

	summary, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.listCalls)
	require.Equal(t, 1, summary.RejectedCount)
	require.Contains(t, summary.Summary, "off brand")
}

func TestGetOrRefreshIgnoresCommentOnlyEdits(t *testing.T) {
	repo := newMockPredictRepo()
	repo.counts["c1"] = domain.ReviewCounts{Approved: 0, Rejected: 1, Total: 1}
	repo.reviewed["c1"] = []db.ReviewedSubmission{rejectedReview("s1", "first comment")}

	cache := NewSummaryCache(repo, nopLogger())

	first, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)

	// The comment changes but the status counts do not.
	repo.mu.Lock()
	repo.reviewed["c1"] = []db.ReviewedSubmission{rejectedReview("s1", "edited comment")}
	repo.mu.Unlock()

	second, err := cache.GetOrRefresh(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, first.Summary, second.Summary)
	require.Contains(t, second.Summary, "first comment")
}

func TestTopThemesFrequencyThenAlphabetical(t *testing.T) {
	reviewed := []db.ReviewedSubmission{
		approvedReview("s1", "warm", "minimal"),
		approvedReview("s2", "Minimal", "bold"),
		approvedReview("s3", "minimal", "warm"),
	}

	got := topThemes(reviewed, domain.ReviewStatusApproved)
	require.Equal(t, []string{"minimal", "warm", "bold"}, got)
}

func TestRejectionCommentsDistinctAndCapped(t *testing.T) {
	reviewed := []db.ReviewedSubmission{
		rejectedReview("s1", "too dark"),
		rejectedReview("s2", "too dark"),
		rejectedReview("s3", "  "),
		rejectedReview("s4", "wrong logo"),
		rejectedReview("s5", "low resolution"),
		rejectedReview("s6", "off brand"),
		approvedReview("s7", "warm"),
	}

	got := rejectionComments(reviewed)
	require.Equal(t, []string{"wrong logo", "low resolution", "off brand"}, got)
}
