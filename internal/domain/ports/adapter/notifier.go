package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentConfirmation is everything the customer e-mail needs.
type PaymentConfirmation struct {
	To          string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
	VoucherCode string
}

// Notifier delivers customer-facing confirmations.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, msg PaymentConfirmation) error
}

// OperatorAlerter pages operators about states needing manual remediation.
type OperatorAlerter interface {
	Alert(ctx context.Context, text string) error
}

// TaskQueue runs fire-and-forget work outside the request.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}

// Locker is a best-effort distributed mutex keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
