package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// anthropicClient is the concrete Generator backed by the Anthropic Messages API.
type anthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicClient returns a Generator that calls the Anthropic API.
//   - apiKey: your ANTHROPIC_API_KEY
//   - model:  e.g. "claude-sonnet-4-5"
func NewAnthropicClient(apiKey, model string) Generator {
	return &anthropicClient{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ─── ANTHROPIC API SHAPES ─────────────────────────────────────────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ─── IMPLEMENTATION ───────────────────────────────────────────────────────────

const systemPrompt = `You are a supportive health habit coach inside a patient self-tracking app.
You will receive an anonymised snapshot: a detected scoring trend (category, direction, streak length, averages), recent daily self-scores labelled only by relative day, earned achievement badges, and the clinician's care plan guidance per category.

Write ONE short message (2-3 sentences, plain text, no markdown) directly addressed to the patient:
- For a negative streak: acknowledge the difficulty without judgement, connect to the care plan guidance for that category, and suggest one small, concrete next step.
- For a positive streak: celebrate the consistency specifically (mention the streak length) and encourage keeping it up.

Rules:
- Never ask for, guess, or mention names, dates, locations, contact details, or any identifier. Address the patient only as "you".
- Stay within the care plan guidance; do not invent medical advice, diagnoses, or medication changes.
- Respond with the message text only, no preamble and no quotation marks.`

// Generate calls the Anthropic API and returns the suggestion text.
func (c *anthropicClient) Generate(ctx context.Context, req SuggestionRequest) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 300,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: buildPrompt(req)},
		},
	}

	raw, err := c.call(ctx, reqBody)
	if err != nil {
		return "", err
	}

	// Strip any accidental markdown fences or wrapping quotes.
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.Trim(raw, `"`)
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return "", fmt.Errorf("ai: empty suggestion from model")
	}

	return raw, nil
}

// call sends one request to the Anthropic Messages API and returns the
// text content of the first content block.
func (c *anthropicClient) call(ctx context.Context, reqBody anthropicRequest) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.anthropic.com/v1/messages",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB cap
	if err != nil {
		return "", fmt.Errorf("ai: read response body: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("ai: unmarshal response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("ai: API error %s: %s", parsed.Error.Type, parsed.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("ai: no text content in response")
}

// buildPrompt serialises the sanitized context into a compact prompt string.
// Every value here has already been through the phi package — the trend result
// carries no identifiers and the bundle is the sanitized form.
func buildPrompt(req SuggestionRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Detected trend: %s in %s, streak length %d, current score %d/10, average %.1f/10\n\n",
		req.Trend.Type, req.Trend.Category, req.Trend.StreakLength,
		req.Trend.CurrentScore, req.Trend.AverageScore)

	if len(req.Context.Scores) > 0 {
		sb.WriteString("Recent daily scores (diet/exercise/medication):\n")
		for _, s := range req.Context.Scores {
			fmt.Fprintf(&sb, "%s: %d/%d/%d\n", s.Day, s.Diet, s.Exercise, s.Medication)
		}
		sb.WriteString("\n")
	}

	if len(req.Context.Badges) > 0 {
		sb.WriteString("Badges earned:\n")
		for _, b := range req.Context.Badges {
			fmt.Fprintf(&sb, "- %s (%s, %s)\n", b.Name, b.Tier, b.Earned)
		}
		sb.WriteString("\n")
	}

	cp := req.Context.CarePlan
	if cp.Diet != "" || cp.Exercise != "" || cp.Medication != "" {
		sb.WriteString("Care plan guidance:\n")
		if cp.Diet != "" {
			fmt.Fprintf(&sb, "diet: %s\n", cp.Diet)
		}
		if cp.Exercise != "" {
			fmt.Fprintf(&sb, "exercise: %s\n", cp.Exercise)
		}
		if cp.Medication != "" {
			fmt.Fprintf(&sb, "medication: %s\n", cp.Medication)
		}
	}

	return sb.String()
}
