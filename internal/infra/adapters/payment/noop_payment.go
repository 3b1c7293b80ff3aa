package payment

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local runs and tests.
// Every checkout it opens verifies as the status set with SetStatus,
// PENDING by default.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	statuses map[string]string // reference -> remote status
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{statuses: make(map[string]string)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) Initialize(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.statuses[req.Reference]; !ok {
		g.statuses[req.Reference] = "PENDING"
	}
	payURL := "https://example.test/pay/" + req.Reference
	return &adapter.CheckoutResult{
		Code:         "201",
		Message:      "CREATED",
		PaymentURL:   payURL,
		PaymentToken: "tok-" + req.Reference,
		Raw: map[string]any{
			"code":    "201",
			"message": "CREATED",
			"data":    map[string]any{"payment_url": payURL, "payment_token": "tok-" + req.Reference},
		},
	}, nil
}

func (g *NoopPaymentGateway) Verify(ctx context.Context, reference string) (*adapter.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[reference]
	if !ok {
		return &adapter.Verification{Code: "627", Message: "TRANSACTION_NOT_FOUND"}, nil
	}
	return &adapter.Verification{
		Code:    "00",
		Message: "SUCCES",
		Data:    &adapter.VerificationData{Status: status, PaymentMethod: "NOOP", TransactionID: reference},
	}, nil
}

// SetStatus decides what Verify reports for reference.
func (g *NoopPaymentGateway) SetStatus(reference, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[reference] = strings.ToUpper(status)
}

// VerifyNotification accepts every notification.
func (g *NoopPaymentGateway) VerifyNotification(form url.Values, token string) bool { return true }
