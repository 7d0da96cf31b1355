// Package predict maintains per-client preference summaries and predicts
// approval probability for new submissions.
package predict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
	db "github.com/mrodrigues22/thumbs-up/internal/storage"
)

const (
	logFieldClient = "client_id"

	maxThemesInSummary   = 8
	maxCommentsInSummary = 3

	outcomeHit     = "hit"
	outcomeRebuild = "rebuild"
	outcomeEmpty   = "empty"
)

// SummaryRepository is the storage surface the summary cache needs.
type SummaryRepository interface {
	GetClientSummary(ctx context.Context, clientID string) (*domain.ClientSummary, error)
	UpsertClientSummary(ctx context.Context, summary *domain.ClientSummary) error
	GetReviewCounts(ctx context.Context, clientID string) (domain.ReviewCounts, error)
	ListReviewedSubmissions(ctx context.Context, clientID string) ([]db.ReviewedSubmission, error)
}

// SummaryCache returns per-client preference summaries, rebuilding them only
// when the client's review counts have moved since the last build. That
// bounds rebuild cost to once per new review, not once per request.
type SummaryCache struct {
	repo   SummaryRepository
	clock  func() time.Time
	logger *zerolog.Logger
}

// NewSummaryCache creates the client summary cache.
func NewSummaryCache(repo SummaryRepository, logger *zerolog.Logger) *SummaryCache {
	return &SummaryCache{
		repo:   repo,
		clock:  time.Now,
		logger: logger,
	}
}

// GetOrRefresh returns the client's summary, rebuilding it first when the
// cached row is missing or its stored counts no longer match the fresh
// review counts. A client with zero reviews gets
// coreerrors.ErrInsufficientHistory instead of a fabricated summary.
//
// Staleness compares counts only: editing a review's comment without
// changing its status does not trigger a rebuild.
func (c *SummaryCache) GetOrRefresh(ctx context.Context, clientID string) (*domain.ClientSummary, error) {
	counts, err := c.repo.GetReviewCounts(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("fresh review counts: %w", err)
	}

	if counts.Total == 0 {
		observability.SummaryRebuildsTotal.WithLabelValues(outcomeEmpty).Inc()

		return nil, coreerrors.ErrInsufficientHistory
	}

	cached, err := c.repo.GetClientSummary(ctx, clientID)
	if err != nil && !errors.Is(err, coreerrors.ErrSummaryNotFound) {
		return nil, fmt.Errorf("get cached summary: %w", err)
	}

	if cached != nil && cached.ApprovedCount == counts.Approved && cached.RejectedCount == counts.Rejected {
		observability.SummaryRebuildsTotal.WithLabelValues(outcomeHit).Inc()

		return cached, nil
	}

	return c.rebuild(ctx, clientID, counts)
}

// rebuild aggregates the client's reviewed submissions into a fresh summary
// and persists it together with the counts it was built from.
func (c *SummaryCache) rebuild(ctx context.Context, clientID string, counts domain.ReviewCounts) (*domain.ClientSummary, error) {
	reviewed, err := c.repo.ListReviewedSubmissions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list reviewed submissions: %w", err)
	}

	summary := &domain.ClientSummary{
		ClientID:      clientID,
		Summary:       buildSummaryText(counts, reviewed),
		ApprovedCount: counts.Approved,
		RejectedCount: counts.Rejected,
		TotalReviews:  counts.Total,
		UpdatedAt:     c.clock(),
	}

	if err := c.repo.UpsertClientSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}

	observability.SummaryRebuildsTotal.WithLabelValues(outcomeRebuild).Inc()

	c.logger.Info().
		Str(logFieldClient, clientID).
		Int("total_reviews", counts.Total).
		Msg("client summary rebuilt")

	return summary, nil
}

// buildSummaryText consolidates review outcomes, frequency-weighted theme
// tags and rejection feedback into a short natural-language profile.
func buildSummaryText(counts domain.ReviewCounts, reviewed []db.ReviewedSubmission) string {
	var sb strings.Builder

	approvalRate := float64(counts.Approved) / float64(counts.Total) * 100

	fmt.Fprintf(&sb, "Based on %d reviews: %d approved, %d rejected (%.0f%% approval rate).",
		counts.Total, counts.Approved, counts.Rejected, approvalRate)

	approvedThemes := topThemes(reviewed, domain.ReviewStatusApproved)
	if len(approvedThemes) > 0 {
		fmt.Fprintf(&sb, " Frequently approved themes: %s.", strings.Join(approvedThemes, ", "))
	}

	rejectedThemes := topThemes(reviewed, domain.ReviewStatusRejected)
	if len(rejectedThemes) > 0 {
		fmt.Fprintf(&sb, " Recurring themes in rejected work: %s.", strings.Join(rejectedThemes, ", "))
	}

	feedback := rejectionComments(reviewed)
	if len(feedback) > 0 {
		fmt.Fprintf(&sb, " Recent rejection feedback: %q.", strings.Join(feedback, "; "))
	}

	return sb.String()
}

// topThemes returns the most frequent flattened tags across submissions with
// the given review outcome, capped at maxThemesInSummary. Frequency wins;
// ties break alphabetically for stable output.
func topThemes(reviewed []db.ReviewedSubmission, status domain.ReviewStatus) []string {
	freq := make(map[string]int)
	casing := make(map[string]string)

	for _, r := range reviewed {
		if r.Status != status {
			continue
		}

		for _, tag := range r.Insights.Flatten() {
			key := strings.ToLower(tag)

			freq[key]++

			if _, ok := casing[key]; !ok {
				casing[key] = tag
			}
		}
	}

	keys := make([]string, 0, len(freq))
	for key := range freq {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}

		return keys[i] < keys[j]
	})

	if len(keys) > maxThemesInSummary {
		keys = keys[:maxThemesInSummary]
	}

	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = casing[key]
	}

	return out
}

// rejectionComments returns the last few distinct non-empty comments left on
// rejected reviews, most recent last.
func rejectionComments(reviewed []db.ReviewedSubmission) []string {
	seen := make(map[string]struct{})

	var comments []string

	for _, r := range reviewed {
		if r.Status != domain.ReviewStatusRejected {
			continue
		}

		comment := strings.TrimSpace(r.Comment)
		if comment == "" {
			continue
		}

		if _, ok := seen[comment]; ok {
			continue
		}

		seen[comment] = struct{}{}

		comments = append(comments, comment)
	}

	if len(comments) > maxCommentsInSummary {
		comments = comments[len(comments)-maxCommentsInSummary:]
	}

	return comments
}
