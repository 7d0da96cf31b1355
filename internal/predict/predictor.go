package predict

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mrodrigues22/thumbs-up/internal/core/domain"
	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
	db "github.com/mrodrigues22/thumbs-up/internal/storage"
)

const defaultTagMatchWeight = 0.05

// PredictorRepository is the storage surface the predictor needs.
type PredictorRepository interface {
	GetContentFeature(ctx context.Context, submissionID string) (*domain.ContentFeature, error)
	GetReviewCounts(ctx context.Context, clientID string) (domain.ReviewCounts, error)
	ListReviewedSubmissions(ctx context.Context, clientID string) ([]db.ReviewedSubmission, error)
}

// Prediction is the result of an approval probability estimate.
type Prediction struct {
	// Probability is the estimated approval probability, in [0, 1].
	Probability float64

	// BaseRate is the client's historical approval rate the estimate
	// started from.
	BaseRate float64

	// MatchedTags are the target submission's tags that also appear in the
	// client's approved history.
	MatchedTags []string

	// Rationale is a short human-readable explanation.
	Rationale string
}

// Predictor estimates the probability a client approves a new submission:
// the client's historical approval rate, nudged up by a fixed weight for
// every tag the submission shares with previously approved work.
type Predictor struct {
	repo   PredictorRepository
	weight float64
	logger *zerolog.Logger
}

// NewPredictor creates an approval predictor. A non-positive weight falls
// back to the default per-tag weight.
func NewPredictor(repo PredictorRepository, tagMatchWeight float64, logger *zerolog.Logger) *Predictor {
	if tagMatchWeight <= 0 {
		tagMatchWeight = defaultTagMatchWeight
	}

	return &Predictor{
		repo:   repo,
		weight: tagMatchWeight,
		logger: logger,
	}
}

// Predict estimates the approval probability for one submission.
//
// Returns coreerrors.ErrNotAnalyzed when the submission has no usable
// analysis yet, and coreerrors.ErrInsufficientSignal when the client has no
// review history to derive a base rate from; callers must surface these
// rather than substitute a numeric guess.
func (p *Predictor) Predict(ctx context.Context, clientID, submissionID string) (*Prediction, error) {
	feature, err := p.repo.GetContentFeature(ctx, submissionID)
	if err != nil {
		if coreerrors.Is(err, coreerrors.ErrFeatureNotFound) {
			return nil, coreerrors.ErrNotAnalyzed
		}

		return nil, fmt.Errorf("get content feature: %w", err)
	}

	if !feature.Status.Terminal() {
		return nil, coreerrors.ErrNotAnalyzed
	}

	counts, err := p.repo.GetReviewCounts(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get review counts: %w", err)
	}

	if counts.Total == 0 {
		// No base rate and, with no approved history, no possible tag
		// overlap either.
		observability.PredictionsTotal.WithLabelValues("insufficient_signal").Inc()

		return nil, coreerrors.ErrInsufficientSignal
	}

	approvedTags, err := p.approvedTagSet(ctx, clientID)
	if err != nil {
		return nil, err
	}

	matched := matchTags(feature.Insights.Flatten(), approvedTags)

	baseRate := float64(counts.Approved) / float64(counts.Total)
	probability := clamp01(baseRate + float64(len(matched))*p.weight)

	observability.PredictionsTotal.WithLabelValues("computed").Inc()

	p.logger.Debug().
		Str(logFieldClient, clientID).
		Str("submission_id", submissionID).
		Float64("probability", probability).
		Int("matched_tags", len(matched)).
		Msg("approval prediction computed")

	return &Prediction{
		Probability: probability,
		BaseRate:    baseRate,
		MatchedTags: matched,
		Rationale:   buildRationale(baseRate, counts, matched),
	}, nil
}

// approvedTagSet collects the case-insensitive union of flattened tags from
// the client's approved submissions.
func (p *Predictor) approvedTagSet(ctx context.Context, clientID string) (map[string]struct{}, error) {
	reviewed, err := p.repo.ListReviewedSubmissions(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list reviewed submissions: %w", err)
	}

	tags := make(map[string]struct{})

	for _, r := range reviewed {
		if r.Status != domain.ReviewStatusApproved {
			continue
		}

		for _, tag := range r.Insights.Flatten() {
			tags[strings.ToLower(tag)] = struct{}{}
		}
	}

	return tags, nil
}

func matchTags(submissionTags []string, approved map[string]struct{}) []string {
	var matched []string

	for _, tag := range submissionTags {
		if _, ok := approved[strings.ToLower(tag)]; ok {
			matched = append(matched, tag)
		}
	}

	return matched
}

func buildRationale(baseRate float64, counts domain.ReviewCounts, matched []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Base approval rate %.0f%% (%d of %d reviews approved).",
		baseRate*100, counts.Approved, counts.Total)

	if len(matched) > 0 {
		fmt.Fprintf(&sb, " Submission shares %d theme(s) with previously approved work: %s.",
			len(matched), strings.Join(matched, ", "))
	} else {
		sb.WriteString(" No theme overlap with previously approved work.")
	}

	return sb.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}
