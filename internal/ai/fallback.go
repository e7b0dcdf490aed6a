package ai

import (
	"context"
	"fmt"
	"log/slog"
)

// fallbackGenerator wraps two Generator implementations. It calls the primary
// first; if that returns an error it logs the failure and tries the secondary.
// This gives you Anthropic as the default with DeepSeek as the safety net
// (or vice versa — the choice is made in main.go).
type fallbackGenerator struct {
	primary   Generator
	secondary Generator
	logger    *slog.Logger
}

// NewFallbackGenerator returns a Generator that calls primary and, on failure,
// falls back to secondary. Either argument may be nil — if primary is nil it
// goes straight to secondary; if secondary is nil and primary fails, the
// primary error is returned directly.
func NewFallbackGenerator(primary, secondary Generator, logger *slog.Logger) Generator {
	return &fallbackGenerator{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Generate tries the primary Generator. If it fails and a secondary is
// configured, it logs the primary error and tries the secondary.
func (f *fallbackGenerator) Generate(ctx context.Context, req SuggestionRequest) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		f.logger.Warn("ai: primary generator failed, trying secondary",
			"error", err,
			"trend_type", req.Trend.Type,
			"category", req.Trend.Category,
		)
		if f.secondary == nil {
			return "", fmt.Errorf("ai: primary failed and no secondary configured: %w", err)
		}
	}

	return f.secondary.Generate(ctx, req)
}
