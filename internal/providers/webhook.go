package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// webhookPayload is the body posted to a user's webhook endpoint. The
// receiving system may confirm delivery later through the receipt callback,
// quoting the notification id and channel.
type webhookPayload struct {
	NotificationID string         `json:"notification_id"`
	Channel        models.Channel `json:"channel"`
	Type           string         `json:"type"`
	Level          models.Level   `json:"level"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data,omitempty"`
}

// WebhookSender posts rendered notifications to the user's registered
// webhook URL.
type WebhookSender struct {
	contacts ContactSource
	client   *http.Client
}

// NewWebhookSender constructs a webhook sender.
func NewWebhookSender(contacts ContactSource) *WebhookSender {
	return &WebhookSender{contacts: contacts, client: &http.Client{}}
}

func (s *WebhookSender) Send(ctx context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load contact for user_id=%s: %w", n.RecipientID, err)
	}
	if contact.WebhookURL == "" {
		return fmt.Errorf("webhook_url not set for user_id=%s: %w", n.RecipientID, notification.ErrPermanent)
	}
	return postJSON(ctx, s.client, contact.WebhookURL, webhookPayload{
		NotificationID: n.ID,
		Channel:        models.ChannelWebhook,
		Type:           n.Type,
		Level:          n.Level,
		Title:          msg.Title,
		Body:           msg.Body,
		Data:           n.Data,
	})
}

// postJSON posts the payload and maps HTTP outcomes to the retry taxonomy:
// 4xx responses are permanent, everything else is transient.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("endpoint %s rejected with status %d: %w", url, resp.StatusCode, notification.ErrPermanent)
	}
	return fmt.Errorf("endpoint %s returned status %d", url, resp.StatusCode)
}
