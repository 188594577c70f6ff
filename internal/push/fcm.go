package push

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCM multicast hard limit per request.
const fcmBatchSize = 500

// FCMSender delivers native push notifications via Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
	logger *slog.Logger
}

// NewFCMSender authenticates to FCM from service account key material.
// The credentials value may be a file path, a raw JSON document, or a
// base64-encoded JSON document.
func NewFCMSender(ctx context.Context, credentials string, logger *slog.Logger) (*FCMSender, error) {
	if credentials == "" {
		return nil, fmt.Errorf("fcm: no credentials configured")
	}

	app, err := firebase.NewApp(ctx, nil, credentialOption(credentials))
	if err != nil {
		return nil, fmt.Errorf("fcm: init app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("fcm: init messaging client: %w", err)
	}
	return &FCMSender{client: client, logger: logger}, nil
}

// credentialOption resolves the three accepted credential encodings.
func credentialOption(credentials string) option.ClientOption {
	trimmed := strings.TrimSpace(credentials)
	if strings.HasPrefix(trimmed, "{") {
		return option.WithCredentialsJSON([]byte(trimmed))
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil &&
		strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return option.WithCredentialsJSON(decoded)
	}
	return option.WithCredentialsFile(trimmed)
}

// Send multicasts the message to every token-addressed target, batching up
// to the FCM limit. Unregistered tokens are reported in Result.Invalid;
// transient per-token failures are counted and left for the next tick.
func (s *FCMSender) Send(ctx context.Context, targets []Target, msg Message) (Result, error) {
	var result Result
	if len(targets) == 0 {
		return result, nil
	}
	body := TruncateBody(msg.Body)

	for start := 0; start < len(targets); start += fcmBatchSize {
		end := min(start+fcmBatchSize, len(targets))
		batch := targets[start:end]

		tokens := make([]string, len(batch))
		for i, t := range batch {
			tokens[i] = t.Token
		}

		resp, err := s.client.SendEachForMulticast(ctx, s.buildMulticast(tokens, msg, body))
		if err != nil {
			// Whole batch unusable (auth, network). Count and continue with
			// the remaining batches; the channel may recover mid-run.
			s.logger.Warn("fcm batch send failed", "tokens", len(batch), "error", err)
			result.Failed += len(batch)
			continue
		}

		for i, r := range resp.Responses {
			switch {
			case r.Success:
				result.Sent++
			case messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error):
				// Dead token: expected churn, deleted by the caller rather
				// than counted as a delivery failure.
				result.Invalid = append(result.Invalid, batch[i].ID)
			default:
				result.Failed++
			}
		}
	}
	return result, nil
}

func (s *FCMSender) buildMulticast(tokens []string, msg Message, body string) *messaging.MulticastMessage {
	android := &messaging.AndroidConfig{Priority: "high"}
	aps := &messaging.Aps{}
	if msg.Sound {
		// Sound is the recipient's own preference, passed through from their
		// settings record.
		android.Notification = &messaging.AndroidNotification{Sound: "default"}
		aps.Sound = "default"
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  body,
		},
		Data:    msg.Data,
		Android: android,
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: &messaging.APNSPayload{Aps: aps},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  body,
				Icon:  "/icon-192x192.png",
				Badge: "/icon-96x96.png",
			},
			FCMOptions: &messaging.WebpushFCMOptions{Link: msg.Data["deepLink"]},
		},
	}
}
