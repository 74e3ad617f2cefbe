package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Slack delivers alert messages to a Slack incoming webhook.
type Slack struct {
	log        *slog.Logger
	client     *http.Client
	webhookURL string
}

// NewSlack creates a Slack deliverer for the given incoming webhook.
func NewSlack(log *slog.Logger, webhookURL string, timeout time.Duration) *Slack {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Slack{
		log:        log,
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

// Deliver posts the message and returns a delivery identifier. Slack
// webhooks do not echo a message ID, so one is generated locally.
func (s *Slack) Deliver(ctx context.Context, message string) (string, error) {
	const opn = "notifier.slack.Deliver"

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode payload: %w", opn, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to build request: %w", opn, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: webhook request failed: %w", opn, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s: webhook returned status %d: %s", opn, resp.StatusCode, string(body))
	}

	messageID := uuid.NewString()
	s.log.DebugContext(ctx, "Slack message delivered", "message_id", messageID)

	return messageID, nil
}
