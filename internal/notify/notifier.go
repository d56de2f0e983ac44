// Package notify is the outbound chat boundary. The bot core only ever
// sees this interface; the concrete implementation posts to chat
// webhooks.
package notify

import (
	"context"
	"errors"
)

var ErrMissingWebhook = errors.New("missing_webhook_url")

// Target addresses one chat channel.
type Target struct {
	ChannelID  string
	WebhookURL string
}

// Notifier delivers one plain-text message. Implementations must be
// safe for use from both cycle workers.
type Notifier interface {
	Send(ctx context.Context, target Target, content string) error
}
