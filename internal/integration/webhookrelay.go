package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/lead"
)

// WebhookAdapter POSTs the full lead snapshot to the tenant's endpoint.
// Payload shape is ours; the receiver adapts.
type WebhookAdapter struct {
	HTTPClient *http.Client
}

func NewWebhookAdapter() *WebhookAdapter {
	return &WebhookAdapter{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (a *WebhookAdapter) Channel() client.ChannelType { return client.ChannelWebhook }

func (a *WebhookAdapter) Deliver(ctx context.Context, l lead.Lead, cfg client.ChannelConfig) (string, error) {
	s := cfg.Webhook
	if s == nil || s.URL == "" {
		return "", errors.New("webhook url is not set")
	}

	payload, err := json.Marshal(map[string]any{
		"event": "lead.qualified",
		"lead":  l,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Secret != "" {
		req.Header.Set("X-Webhook-Secret", s.Secret)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("webhook non-2xx: %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Sprintf("delivered to %s", s.URL), nil
}
