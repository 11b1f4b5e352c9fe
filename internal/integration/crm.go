package integration

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/lead"
)

// CRMAdapter creates a contact in the tenant's CRM. The API authenticates
// with md5(domain + unix-time + secret) per request.
type CRMAdapter struct {
	HTTPClient *http.Client
}

func NewCRMAdapter() *CRMAdapter {
	return &CRMAdapter{HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

func (a *CRMAdapter) Channel() client.ChannelType { return client.ChannelCRM }

func (a *CRMAdapter) Deliver(ctx context.Context, l lead.Lead, cfg client.ChannelConfig) (string, error) {
	s := cfg.CRM
	if s == nil || s.Domain == "" || s.AppSecret == "" {
		return "", errors.New("crm domain/app_secret are not set")
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	token := md5Hex(s.Domain + ts + s.AppSecret)

	form := url.Values{}
	form.Set("domain", s.Domain)
	form.Set("time", ts)
	form.Set("token", token)
	form.Set("name", l.Attrs.Contact.Name)
	form.Set("email", l.Attrs.Contact.Email)
	form.Set("phone", l.Attrs.Contact.Phone)
	form.Set("message", leadSummary(l))

	endpoint := strings.TrimRight(s.BaseURL, "/") + "/contacts/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("crm non-2xx: %d: %s", resp.StatusCode, string(body))
	}
	return "contact created for " + s.Domain, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// leadSummary is the human-readable lead digest sent to CRMs and notifiers.
func leadSummary(l lead.Lead) string {
	a := l.Attrs
	var b strings.Builder
	fmt.Fprintf(&b, "New tint lead (score %d)\n", l.Score)
	if a.Contact.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", a.Contact.Name)
	}
	if a.Contact.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", a.Contact.Phone)
	}
	if a.Contact.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", a.Contact.Email)
	}
	if a.Vehicle.Make != "" {
		fmt.Fprintf(&b, "Vehicle: %s %s %s\n", a.Vehicle.Year, a.Vehicle.Make, a.Vehicle.Model)
	}
	if a.Service.TintType != "" {
		fmt.Fprintf(&b, "Film: %s %s\n", a.Service.TintType, a.Service.Darkness)
	}
	if a.Service.BudgetBand != "" {
		fmt.Fprintf(&b, "Budget: %s\n", a.Service.BudgetBand)
	}
	if a.BookingIntent {
		b.WriteString("Wants to book.\n")
	}
	return strings.TrimSpace(b.String())
}
