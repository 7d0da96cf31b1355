// Package domain defines the core entities shared across the analysis
// pipeline, the predictor, and the billing ledger.
package domain

import (
	"time"

	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
)

// AnalysisStatus is the state of a submission's content analysis.
type AnalysisStatus string

// Analysis status values. Pending is the only non-terminal state; the
// analyze operation is re-invocable from any of them.
const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusNoSignals AnalysisStatus = "no_signals"
	AnalysisStatusNoImages  AnalysisStatus = "no_images"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// Terminal reports whether the status will not change without an explicit
// reanalysis request.
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisStatusCompleted ||
		s == AnalysisStatusNoSignals ||
		s == AnalysisStatusNoImages ||
		s == AnalysisStatusFailed
}

// Submission is a client-provided batch of media awaiting review.
type Submission struct {
	ID        string
	ClientID  string
	Title     string
	CreatedAt time.Time
}

// MediaFile is one uploaded file belonging to a submission, ordered by
// Position within the submission.
type MediaFile struct {
	ID           string
	SubmissionID string
	Path         string
	ContentType  string
	Position     int
}

// IsImage reports whether the file can be sent to the vision capabilities.
func (m MediaFile) IsImage() bool {
	return len(m.ContentType) > 6 && m.ContentType[:6] == "image/"
}

// ReviewStatus is the outcome of a human review of a submission.
type ReviewStatus string

const (
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review is a human decision on a submission, with an optional comment.
type Review struct {
	ID           string
	SubmissionID string
	ClientID     string
	Status       ReviewStatus
	Comment      string
	ReviewedAt   time.Time
}

// ContentFeature is the extracted signal set for one submission. At most one
// row exists per submission; the upsert key is SubmissionID.
type ContentFeature struct {
	SubmissionID  string
	OCRText       string
	HasOCRText    bool
	Insights      insights.ThemeInsights
	Status        AnalysisStatus
	FailureReason string
	ExtractedAt   time.Time
	LastAnalyzed  time.Time
}

// ClientSummary is the aggregated preference profile for one client, built
// from review history and extracted content features. The stored counts are
// the review counts observed at the moment of the last rebuild; staleness is
// detected by comparing them against fresh counts.
type ClientSummary struct {
	ClientID      string
	Summary       string
	ApprovedCount int
	RejectedCount int
	TotalReviews  int
	UpdatedAt     time.Time
}

// ReviewCounts is a fresh snapshot of a client's review tallies.
type ReviewCounts struct {
	Approved int
	Rejected int
	Total    int
}

// ProcessedWebhookEvent is one row of the idempotency ledger. EventID is the
// provider-assigned identifier, treated as opaque; a given id is recorded at
// most once and rows are never updated or deleted.
type ProcessedWebhookEvent struct {
	EventID        string
	EventType      string
	OccurredAt     time.Time
	RecordedAt     time.Time
	SubscriptionID string
	CustomerID     string
}
