// Package vision defines the external image-analysis capabilities the
// pipeline depends on: OCR text extraction and theme extraction. The OpenAI
// implementation is the default provider; tests use the in-package mock.
package vision

import (
	"context"
	"errors"
	"net"

	"github.com/sashabaranov/go-openai"

	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
)

// OCR extracts readable text from an image.
type OCR interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// ThemeExtractor extracts categorized visual theme tags from an image.
type ThemeExtractor interface {
	ExtractThemes(ctx context.Context, imagePath string) (insights.ThemeInsights, error)
}

// Capabilities bundles both analysis capabilities of one provider.
type Capabilities interface {
	OCR
	ThemeExtractor
}

// IsTransient reports whether an error from a capability call is worth
// retrying: rate limiting, timeouts, and server-side or network failures.
// Context cancellation is not transient; the caller is shutting down.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, coreerrors.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
