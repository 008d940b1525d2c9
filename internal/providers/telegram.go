package providers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"portal-notification-service/internal/config"
	"portal-notification-service/internal/models"
	"portal-notification-service/internal/notification"
)

// TelegramSender delivers rendered notifications via the go-telegram/bot
// library. The bot client is built once at startup; sends are rate limited
// globally to stay within the Bot API limits.
type TelegramSender struct {
	contacts ContactSource
	limiter  *rate.Limiter
	bot      *bot.Bot
	initErr  error
}

// NewTelegramSender constructs a Telegram sender. A missing or rejected token
// does not fail startup; it surfaces as a permanent send failure instead.
func NewTelegramSender(cfg config.Config, contacts ContactSource) *TelegramSender {
	perSecond := cfg.Telegram.RatePerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	s := &TelegramSender{
		contacts: contacts,
		limiter:  rate.NewLimiter(rate.Limit(float64(perSecond)), perSecond),
	}
	if cfg.Telegram.BotToken == "" {
		s.initErr = fmt.Errorf("missing bot_token in Telegram configuration: %w", notification.ErrPermanent)
		return s
	}
	b, err := bot.New(cfg.Telegram.BotToken, bot.WithSkipGetMe())
	if err != nil {
		s.initErr = fmt.Errorf("failed to initialize Telegram bot: %w", notification.ErrPermanent)
		return s
	}
	s.bot = b
	return s
}

func (s *TelegramSender) Send(ctx context.Context, n *models.Notification, msg notification.RenderedMessage) error {
	if s.initErr != nil {
		return s.initErr
	}

	contact, err := s.contacts.GetContact(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("failed to load contact for user_id=%s: %w", n.RecipientID, err)
	}
	if contact.TelegramChatID == 0 {
		return fmt.Errorf("missing chat_id for user_id=%s: %w", n.RecipientID, notification.ErrPermanent)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s", msg.Title, msg.Body)
	params := &bot.SendMessageParams{
		ChatID:    contact.TelegramChatID,
		Text:      text,
		ParseMode: "Markdown",
	}
	if _, err := s.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", contact.TelegramChatID, err)
	}
	return nil
}
