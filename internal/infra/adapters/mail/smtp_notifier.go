package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/infra/metrics"
)

var _ adapter.Notifier = (*SMTPNotifier)(nil)

const confirmationSubject = "Confirmation de paiement"

var confirmationBody = template.Must(template.New("confirmation").Parse(
	`Bonjour,

Nous confirmons la réception de votre paiement de {{.Amount}} {{.Currency}}.
Référence de la transaction : {{.Reference}}

Votre code d'accès WiFi : {{.VoucherCode}}
Utilisez ce code comme identifiant et mot de passe sur la page de connexion.

Merci de votre confiance.
`))

// sender is the part of gomail.Dialer the notifier needs.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPNotifier sends confirmation e-mails through an SMTP relay (STARTTLS).
type SMTPNotifier struct {
	dialer  sender
	from    string
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewSMTPNotifier(cfg config.MailConfig, logger *zerolog.Logger) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("mail host or from address empty")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return newNotifier(d, cfg.From, cfg.Timeout, logger), nil
}

func newNotifier(d sender, from string, timeout time.Duration, logger *zerolog.Logger) *SMTPNotifier {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	lg := logger.With().Str("component", "SMTPNotifier").Logger()
	return &SMTPNotifier{dialer: d, from: from, timeout: timeout, logger: &lg}
}

func renderConfirmation(msg adapter.PaymentConfirmation) (string, error) {
	var buf bytes.Buffer
	err := confirmationBody.Execute(&buf, map[string]string{
		"Amount":      msg.Amount.StringFixedBank(0),
		"Currency":    msg.Currency,
		"Reference":   msg.Reference,
		"VoucherCode": msg.VoucherCode,
	})
	return buf.String(), err
}

// SendPaymentConfirmation is synchronous; callers dispatch it off the request path.
func (n *SMTPNotifier) SendPaymentConfirmation(ctx context.Context, msg adapter.PaymentConfirmation) error {
	if msg.To == "" {
		return errors.New("empty recipient")
	}
	body, err := renderConfirmation(msg)
	if err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", confirmationSubject)
	m.SetBody("text/plain", body)

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		metrics.IncNotification("email", "error")
		n.logger.Error().Err(err).Str("reference", msg.Reference).Msg("confirmation e-mail failed")
		return fmt.Errorf("send confirmation: %w", err)
	}
	metrics.IncNotification("email", "sent")
	n.logger.Info().Str("reference", msg.Reference).Msg("confirmation e-mail sent")
	return nil
}
