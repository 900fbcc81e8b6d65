package model

import (
	"time"

	"github.com/google/uuid"
)

// Delivery channels.
const (
	ChannelPush     = "push"
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
	ChannelNone     = "none"
)

// PushSubscription holds a browser push subscription as registered
// by the frontend service worker.
type PushSubscription struct {
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

// User is the slice of the user directory this service needs:
// delivery addresses and the preference flag gating notifications.
type User struct {
	ID                   uuid.UUID         `json:"id"`
	Email                string            `json:"email"`
	TelegramChatID       string            `json:"telegram_chat_id"`
	Channel              string            `json:"channel"` // preferred delivery channel
	NotificationsEnabled bool              `json:"notifications_enabled"`
	Subscription         *PushSubscription `json:"subscription"` // nil if never subscribed
	CreatedAt            time.Time         `json:"created_at"`
}
