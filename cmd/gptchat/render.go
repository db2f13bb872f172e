package main

import (
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// renderMarkdown renders text for the terminal. The raw text is returned
// when rendering fails.
func (a *app) renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		a.logger.Debug("markdown renderer unavailable", zap.Error(err))
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		a.logger.Debug("markdown render failed", zap.Error(err))
		return text
	}
	return out
}
