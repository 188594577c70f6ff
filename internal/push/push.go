// Package push delivers notifications over two independent channels: native
// mobile push via Firebase Cloud Messaging and browser Web Push via the
// standard protocol with VAPID authentication.
//
// Both senders share one contract: send a message to a set of targets,
// count successes and transient failures, and report permanently invalid
// targets so the caller can delete them. A misconfigured channel fails only
// that channel; the other keeps delivering.
package push

import "context"

// Channel names a delivery mechanism with its own addressing scheme.
type Channel string

const (
	ChannelFCM     Channel = "fcm"
	ChannelWebPush Channel = "webpush"
)

// Payload size limits. FCM rejects messages over 4 KiB and most Web Push
// services cap the encrypted payload around the same; bodies are truncated
// rather than failing the whole send.
const (
	maxBodyBytes = 1024
	truncSuffix  = "…"
)

// Target is one delivery address. Token addresses FCM devices; Endpoint,
// P256dh and Auth address Web Push subscriptions. ID is the owning
// device_endpoints row, echoed back in Result.Invalid on permanent failure.
type Target struct {
	ID       string
	Token    string
	Endpoint string
	P256dh   string
	Auth     string
}

// Message is a channel-independent notification. Data carries string-only
// metadata for client-side deep linking. Sound reflects the recipient's own
// preference record; senders pass it through rather than deciding.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
	Sound bool
}

// Result aggregates one send call.
type Result struct {
	Sent    int
	Failed  int
	Invalid []string // target IDs that are permanently dead
}

// Sender delivers one message to many targets. Implementations never return
// an error for per-target failures; those are folded into the Result. An
// error means the whole channel was unusable for this call.
type Sender interface {
	Send(ctx context.Context, targets []Target, msg Message) (Result, error)
}

// TruncateBody bounds a message body to the channel payload budget, cutting
// on a rune boundary and appending an ellipsis when anything was dropped.
func TruncateBody(body string) string {
	if len(body) <= maxBodyBytes {
		return body
	}
	runes := []rune(body)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if len(string(runes))+len(truncSuffix) <= maxBodyBytes {
			break
		}
	}
	return string(runes) + truncSuffix
}
