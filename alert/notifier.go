package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

/* Internal alerting for non-retryable processing failures
 * This is the only path requiring timely human attention; retryable
 * failures self-heal via redelivery and are not alerted individually
 */

// Alert describes a permanently failed event
type Alert struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier delivers alerts to an internal channel
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// WebhookNotifier POSTs alerts as JSON to an ops webhook URL
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("alert webhook: status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes alerts to the structured log. Used when no ops
// webhook is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, a Alert) error {
	n.logger.Error().
		Str("event_id", a.EventID).
		Str("event_type", a.EventType).
		Str("code", a.Code).
		Str("message", a.Message).
		Time("occurred_at", a.OccurredAt).
		Msg("event processing failed permanently")
	return nil
}
