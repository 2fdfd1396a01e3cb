package notify

import (
	"context"
	"time"

	"price-watcher/internal/types"
	"price-watcher/utils"
)

// Webhook posts payloads to a Discord-compatible webhook. Each payload is a
// single request; failures are returned, never retried.
type Webhook struct {
	url       string
	threshold int64
	client    *utils.HTTPClient
	logger    types.Logger
}

// NewWebhook creates a webhook notifier for config.WebhookURL
func NewWebhook(config *types.Config, logger types.Logger) *Webhook {
	return &Webhook{
		url:       config.WebhookURL,
		threshold: config.ChangeThreshold,
		client:    utils.NewHTTPClient(config, logger),
		logger:    logger,
	}
}

// Send delivers payload. A nil payload or an unset URL is a no-op.
func (w *Webhook) Send(ctx context.Context, payload *Payload) error {
	if payload == nil {
		return nil
	}
	if w.url == "" {
		w.logger.Debug("Webhook URL not set, skipping notification")
		return nil
	}
	return w.client.PostJSON(ctx, w.url, payload)
}

// NotifyChanges sends the change alert when there are changes
func (w *Webhook) NotifyChanges(ctx context.Context, changes []types.ChangeEvent, now time.Time) error {
	return w.Send(ctx, ChangeAlert(changes, now))
}

// NotifySummary sends the run report
func (w *Webhook) NotifySummary(ctx context.Context, results []types.RunResult, now time.Time) error {
	return w.Send(ctx, RunSummary(results, w.threshold, now))
}

// Close releases the HTTP client
func (w *Webhook) Close() {
	w.client.Close()
}
