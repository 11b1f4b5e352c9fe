package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/lead"
)

// SchedulingAdapter asks the scheduling provider for a single-use booking
// link tied to the lead's contact info. The link is the log detail; sending
// it to the customer is the notifier's or CRM's job.
type SchedulingAdapter struct {
	HTTPClient *http.Client
}

func NewSchedulingAdapter() *SchedulingAdapter {
	return &SchedulingAdapter{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (a *SchedulingAdapter) Channel() client.ChannelType { return client.ChannelScheduling }

func (a *SchedulingAdapter) Deliver(ctx context.Context, l lead.Lead, cfg client.ChannelConfig) (string, error) {
	s := cfg.Scheduling
	if s == nil || s.AccountHandle == "" {
		return "", errors.New("scheduling account handle is not set")
	}

	payload, err := json.Marshal(map[string]any{
		"account": s.AccountHandle,
		"invitee": map[string]string{
			"name":  l.Attrs.Contact.Name,
			"email": l.Attrs.Contact.Email,
			"phone": l.Attrs.Contact.Phone,
		},
		"note": leadSummary(l),
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(s.BaseURL, "/") + "/scheduling_links"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("scheduling non-2xx: %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("scheduling: decode response: %w", err)
	}
	if out.URL == "" {
		return "", errors.New("scheduling: provider returned no link")
	}
	return out.URL, nil
}
