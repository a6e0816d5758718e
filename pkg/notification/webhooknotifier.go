package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookNotifier posts notifications as JSON to a configured webhook URL.
type WebhookNotifier struct {
	WebhookURL string
	client     *http.Client
}

// NewWebhookNotifier creates a webhook notifier. The HTTP timeout is short:
// alerting sits off the authentication path and must never hold it up.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		WebhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

type webhookPayload struct {
	Subject string            `json:"subject,omitempty"`
	Body    string            `json:"text"`
	Data    map[string]string `json:"data,omitempty"`
}

// Send posts the notification to the webhook URL. NotificationData.To may
// override the configured URL per message.
func (n *WebhookNotifier) Send(notification NotificationData) error {
	if notification.Body == "" {
		return fmt.Errorf("webhook notification requires 'Body'")
	}

	url := n.WebhookURL
	if notification.To != "" {
		url = notification.To
	}
	if url == "" {
		return fmt.Errorf("no webhook URL configured")
	}

	payload, err := json.Marshal(webhookPayload{
		Subject: notification.Subject,
		Body:    notification.Body,
		Data:    notification.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	slog.Info("Delivered webhook notification", "status", resp.StatusCode)
	return nil
}
