package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roomguard/internal/model"
)

type webhookPayload struct {
	Title     string            `json:"title"`
	AlertType model.AlertType   `json:"alert_type"`
	Severity  model.Severity    `json:"severity"`
	ActorKey  string            `json:"actor_key"`
	Count     int               `json:"count"`
	Pattern   model.Pattern     `json:"pattern,omitempty"`
	FirstSeen time.Time         `json:"first_seen"`
	LastSeen  time.Time         `json:"last_seen"`
	Details   map[string]string `json:"details,omitempty"`
}

// Webhook posts an alert summary as JSON to a single configured URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a nil Sink when url is empty: dispatch is disabled, not
// an error.
func NewWebhook(url string, timeout time.Duration) Sink {
	if url == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, alert model.Alert) error {
	payload := webhookPayload{
		Title:     fmt.Sprintf("[%s] %s for %s", alert.Severity, alert.Type, alert.ActorKey),
		AlertType: alert.Type,
		Severity:  alert.Severity,
		ActorKey:  alert.ActorKey,
		Count:     alert.Count,
		Pattern:   alert.Pattern,
		FirstSeen: alert.FirstSeen,
		LastSeen:  alert.LastSeen,
		Details:   alert.Details,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (w *Webhook) Close() error { return nil }
