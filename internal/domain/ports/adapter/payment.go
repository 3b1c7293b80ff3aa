package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// CheckoutRequest is what the gateway needs to open a checkout session.
type CheckoutRequest struct {
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	NotifyURL     string
	ReturnURL     string
	Channels      string
	CustomerEmail string
	Metadata      map[string]string
}

// CheckoutResult carries the gateway answer verbatim in Raw so callers can
// show the gateway's own failure payload.
type CheckoutResult struct {
	Code         string
	Message      string
	Description  string
	PaymentURL   string
	PaymentToken string
	Raw          map[string]any
}

// OK reports whether the gateway created the checkout session.
func (r *CheckoutResult) OK() bool { return r != nil && r.PaymentURL != "" }

// VerificationData is the gateway-side truth about one transaction.
type VerificationData struct {
	Status        string
	PaymentMethod string
	TransactionID string
	Amount        string
	Currency      string
}

// Verification wraps the gateway check answer. Data is nil when the gateway
// returned no usable data.
type Verification struct {
	Code    string
	Message string
	Data    *VerificationData
}

// PaymentGateway is the hex port for the mobile-money payment provider.
type PaymentGateway interface {
	Name() string

	// Initialize opens a checkout session. A business refusal from the gateway
	// is returned as a result, not an error; err is reserved for transport and
	// decoding failures.
	Initialize(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	// Verify fetches the gateway-side status for a merchant reference.
	Verify(ctx context.Context, reference string) (*Verification, error)
}
