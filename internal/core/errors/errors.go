// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Lookup errors.
var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrFeatureNotFound indicates no content feature exists for a submission.
	ErrFeatureNotFound = errors.New("content feature not found")

	// ErrSummaryNotFound indicates no summary row exists for a client.
	ErrSummaryNotFound = errors.New("client summary not found")
)

// External capability errors.
var (
	// ErrRateLimited indicates the vision provider throttled the call.
	ErrRateLimited = errors.New("rate limited")

	// ErrEmptyResponse indicates the vision provider returned nothing.
	ErrEmptyResponse = errors.New("empty response")
)

// Signal-quality errors. These distinguish "no data to compute from" from
// computation failures; callers must not substitute defaults for them.
var (
	// ErrInsufficientHistory indicates a client has no review history to
	// summarize.
	ErrInsufficientHistory = errors.New("insufficient review history")

	// ErrInsufficientSignal indicates a prediction has neither a base rate
	// nor tag overlap to work from.
	ErrInsufficientSignal = errors.New("insufficient signal for prediction")

	// ErrNotAnalyzed indicates a submission has not been analyzed yet.
	ErrNotAnalyzed = errors.New("submission not analyzed yet")
)

// Ledger errors.
var (
	// ErrEventAlreadyProcessed indicates a webhook event id is already in
	// the ledger; side effects must not be applied again.
	ErrEventAlreadyProcessed = errors.New("webhook event already processed")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
