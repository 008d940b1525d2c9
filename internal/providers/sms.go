package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// SMSSender delivers rendered notifications through the Twilio REST API.
type SMSSender struct {
	cfg      config.Config
	contacts ContactSource
	client   *http.Client
}

// NewSMSSender constructs a Twilio-backed SMS sender.
func NewSMSSender(cfg config.Config, contacts ContactSource) *SMSSender {
	return &SMSSender{cfg: cfg, contacts: contacts, client: &http.Client{}}
}

func (s *SMSSender) Send(ctx context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load contact for user_id=%s: %w", n.RecipientID, err)
	}
	if contact.Phone == "" {
		return fmt.Errorf("phone_number not set for user_id=%s: %w", n.RecipientID, notification.ErrPermanent)
	}

	accountSID := s.cfg.SMS.AccountSID
	authToken := s.cfg.SMS.AuthToken
	fromNumber := s.cfg.SMS.FromNumber
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return fmt.Errorf("missing SMS configuration: %w", notification.ErrPermanent)
	}

	urlStr := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", accountSID)
	msgData := url.Values{}
	msgData.Set("To", contact.Phone)
	msgData.Set("From", fromNumber)
	msgData.Set("Body", fmt.Sprintf("%s\n%s", msg.Title, msg.Body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(msgData.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS request for phone_number=%s: %w", contact.Phone, err)
	}
	req.SetBasicAuth(accountSID, authToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", contact.Phone, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("Twilio API rejected phone_number=%s with status %d: %w", contact.Phone, resp.StatusCode, notification.ErrPermanent)
	}
	return fmt.Errorf("Twilio API returned status %d for phone_number=%s", resp.StatusCode, contact.Phone)
}
