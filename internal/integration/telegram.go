package integration

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tintbot/tintbot/internal/client"
	"github.com/tintbot/tintbot/internal/lead"
)

// TelegramAdapter pushes the lead summary to the tenant's Telegram chat.
// One bot serves all tenants; the chat id comes from channel settings.
type TelegramAdapter struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string) (*TelegramAdapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return &TelegramAdapter{bot: bot}, nil
}

func (a *TelegramAdapter) Channel() client.ChannelType { return client.ChannelNotification }

func (a *TelegramAdapter) Deliver(ctx context.Context, l lead.Lead, cfg client.ChannelConfig) (string, error) {
	s := cfg.Notification
	if s == nil || s.ChatID == 0 {
		return "", errors.New("notification chat id is not set")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(s.ChatID, leadSummary(l))
	if _, err := a.bot.Send(msg); err != nil {
		return "", fmt.Errorf("telegram send: %w", err)
	}
	return fmt.Sprintf("notified chat %d", s.ChatID), nil
}
