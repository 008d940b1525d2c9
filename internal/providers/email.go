package providers

import (
	"context"
	"fmt"
	"net/smtp"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// EmailSender delivers rendered notifications over SMTP.
type EmailSender struct {
	cfg      config.Config
	contacts ContactSource
}

// NewEmailSender constructs an SMTP sender.
func NewEmailSender(cfg config.Config, contacts ContactSource) *EmailSender {
	return &EmailSender{cfg: cfg, contacts: contacts}
}

func (s *EmailSender) Send(ctx context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load contact for user_id=%s: %w", n.RecipientID, err)
	}
	if contact.Email == "" {
		return fmt.Errorf("email not set for user_id=%s: %w", n.RecipientID, notification.ErrPermanent)
	}

	smtpServer := s.cfg.Email.SMTPServer
	smtpPort := s.cfg.Email.SMTPPort
	username := s.cfg.Email.Username
	password := s.cfg.Email.Password
	if smtpServer == "" || smtpPort == 0 || username == "" || password == "" {
		return fmt.Errorf("missing email configuration: %w", notification.ErrPermanent)
	}

	subject := msg.Subject
	if subject == "" {
		subject = msg.Title
	}
	message := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", contact.Email, subject, msg.Body)

	auth := smtp.PlainAuth("", username, password, smtpServer)
	addr := fmt.Sprintf("%s:%d", smtpServer, smtpPort)
	if err := smtp.SendMail(addr, auth, username, []string{contact.Email}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", contact.Email, err)
	}
	return nil
}
