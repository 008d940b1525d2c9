package models

import "time"

// Contact holds the per-channel destinations for a user. Senders look up the
// destination they need and fail permanently when it is missing.
type Contact struct {
	UserID         string    `json:"user_id"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	WebhookURL     string    `json:"webhook_url,omitempty"`
	PushToken      string    `json:"push_token,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
