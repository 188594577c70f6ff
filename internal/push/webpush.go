package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Web Push TTL: a day, matching the longest threshold window a stale
// notification could still be relevant for.
const webpushTTL = 24 * 60 * 60

// WebPushSender delivers browser notifications over the standard Web Push
// protocol with VAPID authentication. Subscriptions have no multicast; each
// endpoint is posted individually.
type WebPushSender struct {
	publicKey  string
	privateKey string
	subscriber string // contact email, mailto: added by the library
	logger     *slog.Logger
}

// NewWebPushSender validates the VAPID configuration and returns a sender.
func NewWebPushSender(publicKey, privateKey, subscriber string, logger *slog.Logger) (*WebPushSender, error) {
	if publicKey == "" || privateKey == "" {
		return nil, fmt.Errorf("webpush: VAPID keypair not configured")
	}
	if subscriber == "" {
		return nil, fmt.Errorf("webpush: subscriber email not configured")
	}
	return &WebPushSender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		logger:     logger,
	}, nil
}

// webpushPayload is the JSON blob the service worker receives.
type webpushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Icon  string            `json:"icon"`
	Badge string            `json:"badge"`
	Tag   string            `json:"tag,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Send posts the message to every subscription-addressed target. A 404 or
// 410 response means the browser dropped the subscription; those targets are
// reported in Result.Invalid for deletion. Other failures count as transient.
func (s *WebPushSender) Send(ctx context.Context, targets []Target, msg Message) (Result, error) {
	var result Result
	if len(targets) == 0 {
		return result, nil
	}

	payload, err := json.Marshal(webpushPayload{
		Title: msg.Title,
		Body:  TruncateBody(msg.Body),
		Icon:  "/icon-192x192.png",
		Badge: "/icon-96x96.png",
		Tag:   msg.Data["type"],
		Data:  msg.Data,
	})
	if err != nil {
		return result, fmt.Errorf("webpush: marshal payload: %w", err)
	}

	for _, t := range targets {
		if ctx.Err() != nil {
			result.Failed++
			continue
		}
		sub := &webpush.Subscription{
			Endpoint: t.Endpoint,
			Keys: webpush.Keys{
				P256dh: t.P256dh,
				Auth:   t.Auth,
			},
		}

		resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
			Subscriber:      s.subscriber,
			VAPIDPublicKey:  s.publicKey,
			VAPIDPrivateKey: s.privateKey,
			TTL:             webpushTTL,
		})
		if err != nil {
			s.logger.Warn("webpush send failed", "endpoint_id", t.ID, "error", err)
			result.Failed++
			continue
		}

		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			// Subscription expired or unsubscribed; steady-state churn, not
			// a delivery failure.
			result.Invalid = append(result.Invalid, t.ID)
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			result.Sent++
		default:
			s.logger.Warn("webpush unexpected status",
				"endpoint_id", t.ID, "status", resp.StatusCode)
			result.Failed++
		}
		resp.Body.Close()
	}
	return result, nil
}

// GenerateVAPIDKeys creates a fresh keypair for deployment setup.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
