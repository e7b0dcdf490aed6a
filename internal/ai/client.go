// Package ai defines the interface for AI-generated proactive suggestions and
// provides Anthropic- and DeepSeek-backed implementations.
//
// Nothing in this package may see raw patient data: callers hand it a
// phi.SanitizedBundle and a trend result, both of which are already scrubbed.
package ai

import (
	"context"

	"github.com/rumbidzaim/habitpulse-backend/internal/phi"
	"github.com/rumbidzaim/habitpulse-backend/internal/trend"
)

// SuggestionRequest is the sanitized context a suggestion is generated from.
type SuggestionRequest struct {
	// Trend is the detected streak that triggered the suggestion. Contains
	// only category, type, lengths, and score aggregates — no identifiers.
	Trend trend.Result

	// Context is the sanitized data bundle: opaque patient reference,
	// relative-day score rows, badge names, and scrubbed care plan text.
	Context phi.SanitizedBundle
}

// Generator is the interface the feedback coordinator uses to produce
// suggestion text. The concrete implementations live in anthropic.go and
// deepseek.go. Tests inject a stub that returns canned responses.
type Generator interface {
	// Generate returns a short, supportive suggestion message for the given
	// trend. It must complete (or fail) within the deadline carried by ctx.
	//
	// Implementations must be safe to call concurrently.
	// A non-nil error means the call failed; the coordinator falls back to a
	// static template from static.go.
	Generate(ctx context.Context, req SuggestionRequest) (string, error)
}
