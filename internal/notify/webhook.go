package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nooogy1/FantasyPetDiscord/internal/observability/logger"
	"github.com/nooogy1/FantasyPetDiscord/internal/observability/tracing"
)

const sendTimeout = 10 * time.Second

// WebhookNotifier posts messages to Discord-style webhooks: a JSON
// body with a "content" field, any 2xx as success.
type WebhookNotifier struct {
	client *http.Client
	log    *zap.Logger
}

type WebhookParams struct {
	fx.In

	Log *zap.Logger
}

func NewWebhookNotifier(p WebhookParams) Notifier {
	return &WebhookNotifier{
		client: tracing.WrapHTTPClient(&http.Client{Timeout: sendTimeout}),
		log:    p.Log.Named("notify.webhook"),
	}
}

func (n *WebhookNotifier) Send(ctx context.Context, target Target, content string) error {
	url := strings.TrimSpace(target.WebhookURL)
	if url == "" {
		return ErrMissingWebhook
	}

	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	n.log.Debug("message sent",
		zap.String("channel_id", target.ChannelID),
		zap.String("webhook", logger.MaskWebhookURL(url)),
	)
	return nil
}
