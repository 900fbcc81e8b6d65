// Package notify dispatches reminder notifications to a user's
// preferred delivery channel. Delivery is best-effort: every failure is
// reported to the caller as an error to log, never as a reason to stop
// the reminder's own state advancement.
package notify

import (
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"github.com/echojournal/reminderd/internal/model"
)

// Payload is the structured notification content built from a reminder.
type Payload struct {
	Title    string                 `json:"title"`
	Body     string                 `json:"body,omitempty"`
	Icon     string                 `json:"icon,omitempty"`
	Tag      string                 `json:"tag,omitempty"` // dedup key, reminder id
	Priority string                 `json:"priority,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Text renders the payload for plain-text channels.
func (p Payload) Text() string {
	if p.Body == "" {
		return p.Title
	}

	return p.Title + "\n\n" + p.Body
}

// PushSender delivers a payload to a browser push subscription.
type PushSender interface {
	Send(sub model.PushSubscription, payload interface{}) error
}

// TextSender delivers rendered text to an address, e.g. a chat id.
type TextSender interface {
	Send(to, text string) error
}

// EmailSender delivers a subject and body to an email address.
type EmailSender interface {
	Send(to, subject, body string) error
}

// Dispatcher routes a payload to the channel the user prefers. A nil
// client means the channel is unconfigured; dispatching to it degrades
// to a no-op instead of failing.
type Dispatcher struct {
	push     PushSender
	telegram TextSender
	email    EmailSender
}

// NewDispatcher creates a dispatcher over the configured channel
// clients. Any of them may be nil.
func NewDispatcher(push PushSender, telegram TextSender, email EmailSender) *Dispatcher {
	return &Dispatcher{push: push, telegram: telegram, email: email}
}

// Dispatch attempts a single delivery to the user's channel and reports
// the outcome. It returns nil without sending when the user has opted
// out of notifications or the channel is not configured.
func (d *Dispatcher) Dispatch(user model.User, p Payload) error {
	if !user.NotificationsEnabled {
		zlog.Logger.Debug().Str("user_id", user.ID.String()).Msg("notifications disabled for user, skipping")
		return nil
	}

	channel := user.Channel
	if channel == "" {
		channel = model.ChannelPush
	}

	switch channel {
	case model.ChannelNone:
		return nil
	case model.ChannelPush:
		if d.push == nil {
			zlog.Logger.Debug().Msg("push delivery not configured, skipping")
			return nil
		}
		if user.Subscription == nil {
			return fmt.Errorf("user %s has no push subscription", user.ID)
		}
		return d.push.Send(*user.Subscription, p)
	case model.ChannelTelegram:
		if d.telegram == nil {
			zlog.Logger.Debug().Msg("telegram delivery not configured, skipping")
			return nil
		}
		if user.TelegramChatID == "" {
			return fmt.Errorf("user %s has no telegram chat id", user.ID)
		}
		return d.telegram.Send(user.TelegramChatID, p.Text())
	case model.ChannelEmail:
		if d.email == nil {
			zlog.Logger.Debug().Msg("email delivery not configured, skipping")
			return nil
		}
		if user.Email == "" {
			return fmt.Errorf("user %s has no email address", user.ID)
		}
		return d.email.Send(user.Email, p.Title, p.Text())
	default:
		return fmt.Errorf("unknown channel %s", channel)
	}
}
