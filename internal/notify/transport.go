package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// WebhookTransport delivers payloads by POSTing them to a downstream push
// gateway (the mobile notification service). The gateway owns device tokens
// and platform fan-out; this side only speaks JSON over HTTP.
type WebhookTransport struct {
	endpoint string
	client   *http.Client
}

func NewWebhookTransport(endpoint string, client *http.Client) *WebhookTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookTransport{endpoint: endpoint, client: client}
}

func (t *WebhookTransport) Deliver(ctx context.Context, patientID uuid.UUID, p Payload) error {
	body, err := json.Marshal(struct {
		PatientID uuid.UUID `json:"patient_id"`
		Payload   Payload   `json:"payload"`
	}{PatientID: patientID, Payload: p})
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogTransport writes deliveries to the structured log instead of pushing
// them anywhere. Used when no push gateway is configured, which is the normal
// state in development.
type LogTransport struct {
	Logger *slog.Logger
}

func (t LogTransport) Deliver(_ context.Context, patientID uuid.UUID, p Payload) error {
	t.Logger.Info("notification delivered (log transport)",
		"patient_id", patientID,
		"type", p.Type,
		"trend_type", p.TrendType,
		"category", p.Category,
	)
	return nil
}
