package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/mrodrigues22/thumbs-up/internal/core/errors"
	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
	"github.com/mrodrigues22/thumbs-up/internal/platform/config"
	"github.com/mrodrigues22/thumbs-up/internal/platform/observability"
)

const (
	rateLimiterBurst = 5

	metricKindOCR    = "ocr"
	metricKindThemes = "themes"

	ocrPrompt = "Extract all readable text from this image. " +
		"Return only the extracted text, with no commentary. " +
		"If there is no readable text, return an empty response."

	themesPrompt = "Analyze this image and describe its visual content as JSON with the fields " +
		`"subjects", "vibes", "notable_elements", "colors" and "keywords", each an array of short lowercase tags. ` +
		"Return only the JSON object."
)

// OpenAIClient implements both capabilities against the OpenAI vision API.
type OpenAIClient struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAI creates the OpenAI-backed vision client.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) *OpenAIClient {
	return &OpenAIClient{
		cfg:         cfg,
		client:      openai.NewClient(cfg.VisionAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.VisionRateRPS), rateLimiterBurst),
	}
}

// ExtractText runs OCR over one image.
func (c *OpenAIClient) ExtractText(ctx context.Context, imagePath string) (string, error) {
	start := time.Now()

	text, err := c.complete(ctx, imagePath, ocrPrompt, nil)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}

	observability.VisionRequestDuration.WithLabelValues(metricKindOCR).Observe(time.Since(start).Seconds())

	return strings.TrimSpace(text), nil
}

// ExtractThemes extracts theme tags from one image. Whatever shape the model
// answers in is absorbed by the insights parser.
func (c *OpenAIClient) ExtractThemes(ctx context.Context, imagePath string) (insights.ThemeInsights, error) {
	start := time.Now()

	raw, err := c.complete(ctx, imagePath, themesPrompt, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return insights.ThemeInsights{}, fmt.Errorf("extract themes: %w", err)
	}

	observability.VisionRequestDuration.WithLabelValues(metricKindThemes).Observe(time.Since(start).Seconds())

	return insights.Parse(raw), nil
}

func (c *OpenAIClient) complete(ctx context.Context, imagePath, prompt string, format *openai.ChatCompletionResponseFormat) (string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.VisionTimeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    c.imageURL(imagePath),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: format,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", coreerrors.ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// imageURL resolves a stored media path against the configured public base
// URL. Absolute URLs pass through unchanged.
func (c *OpenAIClient) imageURL(imagePath string) string {
	if strings.HasPrefix(imagePath, "http://") || strings.HasPrefix(imagePath, "https://") {
		return imagePath
	}

	return strings.TrimSuffix(c.cfg.MediaBaseURL, "/") + "/" + strings.TrimPrefix(imagePath, "/")
}

// Ensure OpenAIClient implements the capability interfaces.
var _ Capabilities = (*OpenAIClient)(nil)
