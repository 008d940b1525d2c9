package providers

import (
	"context"
	"fmt"
	"net/http"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// pushPayload is the body posted to the push gateway.
type pushPayload struct {
	NotificationID string         `json:"notification_id"`
	Channel        models.Channel `json:"channel"`
	DeviceToken    string         `json:"device_token"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data,omitempty"`
}

// PushSender hands rendered notifications to the mobile push gateway. The
// gateway reports final delivery asynchronously via the receipt callback.
type PushSender struct {
	cfg      config.Config
	contacts ContactSource
	client   *http.Client
}

// NewPushSender constructs a push sender.
func NewPushSender(cfg config.Config, contacts ContactSource) *PushSender {
	return &PushSender{cfg: cfg, contacts: contacts, client: &http.Client{}}
}

func (s *PushSender) Send(ctx context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	if s.cfg.Push.GatewayURL == "" {
		return fmt.Errorf("missing push gateway configuration: %w", notification.ErrPermanent)
	}
	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load contact for user_id=%s: %w", n.RecipientID, err)
	}
	if contact.PushToken == "" {
		return fmt.Errorf("push token not set for user_id=%s: %w", n.RecipientID, notification.ErrPermanent)
	}
	return postJSON(ctx, s.client, s.cfg.Push.GatewayURL, pushPayload{
		NotificationID: n.ID,
		Channel:        models.ChannelPush,
		DeviceToken:    contact.PushToken,
		Title:          msg.Title,
		Body:           msg.Body,
		Data:           n.Data,
	})
}
