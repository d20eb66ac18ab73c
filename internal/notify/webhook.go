// Package notify delivers operational messages to an external sink. Delivery
// is fire-and-forget: the archive never depends on the sink being healthy.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WebhookConfig controls webhook delivery.
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// Webhook posts messages as plain text to a configured URL.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook builds a webhook notifier.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Notify posts the pre-formatted message.
func (w *Webhook) Notify(ctx context.Context, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification sink returned status %d", resp.StatusCode)
	}
	return nil
}
