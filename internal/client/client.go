// Package client holds per-tenant configuration: branding served to the
// widget and the integration channels the dispatcher fans out to.
package client

// ChannelType enumerates the automation channels. The dispatcher matches on
// this tag exhaustively; there are no optional-key probes.
type ChannelType string

const (
	ChannelCRM          ChannelType = "crm"
	ChannelScheduling   ChannelType = "scheduling"
	ChannelWebhook      ChannelType = "webhook"
	ChannelNotification ChannelType = "notification"
)

// ChannelConfig is a tagged variant: Type says which settings field is set.
type ChannelConfig struct {
	Type    ChannelType `json:"type"`
	Enabled bool        `json:"enabled"`

	CRM          *CRMSettings          `json:"crm,omitempty"`
	Scheduling   *SchedulingSettings   `json:"scheduling,omitempty"`
	Webhook      *WebhookSettings      `json:"webhook,omitempty"`
	Notification *NotificationSettings `json:"notification,omitempty"`
}

type CRMSettings struct {
	BaseURL   string `json:"baseUrl"`
	Domain    string `json:"domain"`
	AppSecret string `json:"appSecret"`
}

type SchedulingSettings struct {
	BaseURL       string `json:"baseUrl"`
	AccountHandle string `json:"accountHandle"`
	APIKey        string `json:"apiKey"`
}

type WebhookSettings struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

type NotificationSettings struct {
	ChatID int64 `json:"chatId"`
}

type Branding struct {
	ShopName string `json:"shopName"`
	Greeting string `json:"greeting"`
}

type Config struct {
	ClientID string          `json:"clientId"`
	Branding Branding        `json:"branding"`
	Channels []ChannelConfig `json:"channels"`
}

// EnabledChannels filters to channels that are both enabled and carry the
// settings their tag requires. A channel without credentials is disabled,
// not an error.
func (c Config) EnabledChannels() []ChannelConfig {
	var out []ChannelConfig
	for _, ch := range c.Channels {
		if !ch.Enabled {
			continue
		}
		switch ch.Type {
		case ChannelCRM:
			if ch.CRM == nil || ch.CRM.Domain == "" || ch.CRM.AppSecret == "" {
				continue
			}
		case ChannelScheduling:
			if ch.Scheduling == nil || ch.Scheduling.AccountHandle == "" {
				continue
			}
		case ChannelWebhook:
			if ch.Webhook == nil || ch.Webhook.URL == "" {
				continue
			}
		case ChannelNotification:
			if ch.Notification == nil || ch.Notification.ChatID == 0 {
				continue
			}
		default:
			continue
		}
		out = append(out, ch)
	}
	return out
}
