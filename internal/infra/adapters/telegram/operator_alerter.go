package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/infra/metrics"
)

var _ adapter.OperatorAlerter = (*OperatorAlerter)(nil)

// messageSender is the part of tgbotapi.BotAPI used for alerts.
type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// OperatorAlerter posts remediation alerts to an operator Telegram chat.
type OperatorAlerter struct {
	bot    messageSender
	chatID int64
	logger *zerolog.Logger
}

func NewOperatorAlerter(cfg config.TelegramConfig, logger *zerolog.Logger) (*OperatorAlerter, error) {
	if cfg.Token == "" || cfg.OperatorChatID == 0 {
		return nil, errors.New("telegram token or operator chat id empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return newOperatorAlerter(bot, cfg.OperatorChatID, logger), nil
}

func newOperatorAlerter(bot messageSender, chatID int64, logger *zerolog.Logger) *OperatorAlerter {
	lg := logger.With().Str("component", "OperatorAlerter").Logger()
	return &OperatorAlerter{bot: bot, chatID: chatID, logger: &lg}
}

func (a *OperatorAlerter) Alert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(a.chatID, "⚠️ "+text)
	msg.DisableWebPagePreview = true
	if _, err := a.bot.Send(msg); err != nil {
		metrics.IncNotification("telegram", "error")
		a.logger.Error().Err(err).Msg("operator alert failed")
		return err
	}
	metrics.IncNotification("telegram", "sent")
	return nil
}
