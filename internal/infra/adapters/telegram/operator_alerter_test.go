//go:build !integration

package telegram

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type mockSender struct {
	SendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) { return m.SendFunc(c) }

func TestOperatorAlerter_Alert(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("should post the alert to the operator chat", func(t *testing.T) {
		var got tgbotapi.MessageConfig
		a := newOperatorAlerter(&mockSender{SendFunc: func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
			got = c.(tgbotapi.MessageConfig)
			return tgbotapi.Message{}, nil
		}}, 42, &logger)

		if err := a.Alert(context.Background(), "voucher pending for TX-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.ChatID != 42 || !strings.Contains(got.Text, "TX-1") {
			t.Fatalf("unexpected message: %+v", got)
		}
	})

	t.Run("should return send errors", func(t *testing.T) {
		a := newOperatorAlerter(&mockSender{SendFunc: func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
			return tgbotapi.Message{}, errors.New("chat not found")
		}}, 42, &logger)

		if err := a.Alert(context.Background(), "x"); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("noop alerter should never fail", func(t *testing.T) {
		if err := NewNoopAlerter(&logger).Alert(context.Background(), "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
