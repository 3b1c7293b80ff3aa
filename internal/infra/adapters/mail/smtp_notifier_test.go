//go:build !integration

package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"hotspot-billing/internal/domain/ports/adapter"
)

type mockSender struct {
	DialAndSendFunc func(m ...*gomail.Message) error
}

func (m *mockSender) DialAndSend(msgs ...*gomail.Message) error { return m.DialAndSendFunc(msgs...) }

func TestSMTPNotifier_SendPaymentConfirmation(t *testing.T) {
	logger := zerolog.New(io.Discard)
	msg := adapter.PaymentConfirmation{
		To:          "alice@example.com",
		Amount:      decimal.NewFromInt(500),
		Currency:    "XOF",
		Reference:   "TX-0123456789abcdef",
		VoucherCode: "ABCD2345",
	}

	t.Run("should send the confirmation with voucher and reference", func(t *testing.T) {
		// --- Arrange ---
		var sent bytes.Buffer
		s := &mockSender{DialAndSendFunc: func(ms ...*gomail.Message) error {
			if got := ms[0].GetHeader("Subject"); len(got) != 1 || got[0] != "Confirmation de paiement" {
				t.Errorf("unexpected subject %v", got)
			}
			_, err := ms[0].WriteTo(&sent)
			return err
		}}
		n := newNotifier(s, "billing@example.com", time.Second, &logger)

		// --- Act ---
		err := n.SendPaymentConfirmation(context.Background(), msg)

		// --- Assert ---
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body := sent.String()
		for _, want := range []string{"ABCD2345", "TX-0123456789abcdef", "500 XOF"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected %q in the message", want)
			}
		}
	})

	t.Run("should surface relay failures", func(t *testing.T) {
		s := &mockSender{DialAndSendFunc: func(ms ...*gomail.Message) error { return errors.New("535 auth failed") }}
		n := newNotifier(s, "billing@example.com", time.Second, &logger)

		if err := n.SendPaymentConfirmation(context.Background(), msg); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("should give up on a slow relay", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		s := &mockSender{DialAndSendFunc: func(ms ...*gomail.Message) error { <-release; return nil }}
		n := newNotifier(s, "billing@example.com", 20*time.Millisecond, &logger)

		if err := n.SendPaymentConfirmation(context.Background(), msg); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected a deadline error, got %v", err)
		}
	})

	t.Run("should refuse an empty recipient", func(t *testing.T) {
		n := newNotifier(&mockSender{}, "billing@example.com", time.Second, &logger)
		empty := msg
		empty.To = ""
		if err := n.SendPaymentConfirmation(context.Background(), empty); err == nil {
			t.Fatal("expected an error")
		}
	})
}
