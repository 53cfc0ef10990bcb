package slack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stakewatch/validator-watcher/internal/application/domain"
	"github.com/stakewatch/validator-watcher/internal/application/ports"
)

// Notifier posts alerts to a Slack incoming webhook. Only alerts at or above
// MinSeverity are forwarded; everything else stays on the console sink.
type Notifier struct {
	WebhookURL  string
	MinSeverity domain.Severity
	HTTPClient  *http.Client
}

func NewNotifier(webhookURL string) ports.AlertSink {
	return &Notifier{
		WebhookURL:  webhookURL,
		MinSeverity: domain.SeverityCritical,
		HTTPClient:  &http.Client{Timeout: 3 * time.Second},
	}
}

type messagePayload struct {
	Text string `json:"text"`
}

func (n *Notifier) EmitAlert(severity domain.Severity, message string) error {
	if severity < n.MinSeverity {
		return nil
	}

	body, err := json.Marshal(messagePayload{Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	req, err := http.NewRequest("POST", n.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed with status: %s", resp.Status)
	}
	return nil
}
