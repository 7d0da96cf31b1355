package vision

import (
	"context"
	"sync"

	"github.com/mrodrigues22/thumbs-up/internal/core/insights"
)

// Mock is a configurable in-memory capability implementation for tests and
// for running without a vision API key.
type Mock struct {
	mu sync.Mutex

	// TextFunc and ThemesFunc override per-call behavior when set.
	TextFunc   func(ctx context.Context, imagePath string) (string, error)
	ThemesFunc func(ctx context.Context, imagePath string) (insights.ThemeInsights, error)

	// Texts and Themes are returned by image path when the funcs are unset.
	Texts  map[string]string
	Themes map[string]insights.ThemeInsights

	textCalls   []string
	themesCalls []string
}

func (m *Mock) ExtractText(ctx context.Context, imagePath string) (string, error) {
	m.mu.Lock()
	m.textCalls = append(m.textCalls, imagePath)
	m.mu.Unlock()

	if m.TextFunc != nil {
		return m.TextFunc(ctx, imagePath)
	}

	return m.Texts[imagePath], nil
}

func (m *Mock) ExtractThemes(ctx context.Context, imagePath string) (insights.ThemeInsights, error) {
	m.mu.Lock()
	m.themesCalls = append(m.themesCalls, imagePath)
	m.mu.Unlock()

	if m.ThemesFunc != nil {
		return m.ThemesFunc(ctx, imagePath)
	}

	return m.Themes[imagePath], nil
}

// TextCalls returns the image paths OCR was invoked with.
func (m *Mock) TextCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.textCalls...)
}

// ThemesCalls returns the image paths theme extraction was invoked with.
func (m *Mock) ThemesCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.themesCalls...)
}

var _ Capabilities = (*Mock)(nil)
