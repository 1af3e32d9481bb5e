package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"foodlink/internal/core/domain"

	"go.uber.org/zap"
)

// WebhookNotifier posts lifecycle events as JSON to an external URL
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	log     *zap.Logger
}

// NewWebhookNotifier creates a notifier; an empty url disables it
func NewWebhookNotifier(url string, log *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		enabled: url != "",
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

// IsEnabled checks if notification is enabled
func (n *WebhookNotifier) IsEnabled() bool {
	return n.enabled
}

// Publish sends the event in the background
func (n *WebhookNotifier) Publish(event domain.Event) {
	if !n.enabled {
		return
	}
	go func() {
		if err := n.send(context.Background(), event); err != nil {
			n.log.Warn("webhook delivery failed",
				zap.String("event", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}()
}

func (n *WebhookNotifier) send(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Foodlink-Event", string(event.Type))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
