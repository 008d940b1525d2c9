package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

type contactStub struct {
	contact models.Contact
}

func (c contactStub) GetContact(_ context.Context, userID string) (models.Contact, error) {
	out := c.contact
	out.UserID = userID
	return out, nil
}

func TestTelegramSenderMissingTokenIsPermanent(t *testing.T) {
	var cfg config.Config
	s := NewTelegramSender(cfg, contactStub{contact: models.Contact{TelegramChatID: 42}})

	err := s.Send(context.Background(), &models.Notification{ID: "n1", RecipientID: "u1"}, notification.RenderedMessage{})
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrPermanent)
}

func TestTelegramSenderBuildsClientOnce(t *testing.T) {
	var cfg config.Config
	cfg.Telegram.BotToken = "12345:token"

	s := NewTelegramSender(cfg, contactStub{})
	require.NoError(t, s.initErr)
	assert.NotNil(t, s.bot)
}

func TestTelegramSenderMissingChatIDIsPermanent(t *testing.T) {
	var cfg config.Config
	cfg.Telegram.BotToken = "12345:token"
	s := NewTelegramSender(cfg, contactStub{})

	err := s.Send(context.Background(), &models.Notification{ID: "n1", RecipientID: "u1"}, notification.RenderedMessage{})
	require.Error(t, err)
	assert.ErrorIs(t, err, notification.ErrPermanent)
}
