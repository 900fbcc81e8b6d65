// Package webpush delivers Web Push notifications to browser
// subscriptions using VAPID authentication.
package webpush

import (
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/echojournal/reminderd/internal/model"
)

const defaultTTL = 300 // seconds the push service may hold an undelivered message

// Client sends push messages on behalf of a VAPID key pair.
type Client struct {
	publicKey  string
	privateKey string
	subscriber string // contact mailto: or URL required by the push service
}

// NewClient creates a web push client. An empty key pair yields an
// unconfigured client; callers should check Configured and fall back to
// a no-op sender instead of failing.
func NewClient(publicKey, privateKey, subscriber string) *Client {
	return &Client{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
	}
}

// Configured reports whether VAPID keys are present.
func (c *Client) Configured() bool {
	return c.publicKey != "" && c.privateKey != ""
}

// Send pushes the payload to a single subscription endpoint.
//
// HTTP 404 and 410 from the push service mean the subscription expired;
// that is reported as an error for the caller to log, delivery is never
// retried here.
func (c *Client) Send(sub model.PushSubscription, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             defaultTTL,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("push subscription expired: %s", resp.Status)
	default:
		return fmt.Errorf("push service error: %s", resp.Status)
	}
}
