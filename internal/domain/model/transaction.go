package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotspot-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"  // created locally; awaiting gateway confirmation
	PaymentStatusAccepted PaymentStatus = "ACCEPTED" // verified at the gateway; terminal
	PaymentStatusRefused  PaymentStatus = "REFUSED"  // refused at the gateway; terminal
)

// PaymentMethodManual is recorded when an operator confirms a payment by hand.
const PaymentMethodManual = "MANUAL"

// IsTerminal reports whether no normal flow may move a transaction out of s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusAccepted || s == PaymentStatusRefused
}

// NormalizePaymentStatus maps a gateway-reported status onto the local enum.
// Unknown values are kept verbatim (upper-cased); empty means PENDING.
func NormalizePaymentStatus(raw string) PaymentStatus {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return PaymentStatusPending
	}
	return PaymentStatus(s)
}

// RecordStatus is the soft-delete flag shared by users, packages, transactions and vouchers.
type RecordStatus string

const (
	RecordActive  RecordStatus = "active"
	RecordDeleted RecordStatus = "delete"
)

// Transaction is the unit of payment state, keyed by a merchant reference.
type Transaction struct {
	ID            string          // UUID surrogate
	Reference     string          // merchant reference, e.g. TX-0123456789abcdef
	UserID        string          // UUID
	PackageID     string          // UUID
	Amount        decimal.Decimal // > 0
	Currency      string
	PaymentMethod *string // nil until known
	Status        PaymentStatus
	RecordStatus  RecordStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTransaction validates and constructs a PENDING transaction.
func NewTransaction(id, reference, userID, packageID string, amount decimal.Decimal, currency, method string) (*Transaction, error) {
	if id == "" || reference == "" || userID == "" || packageID == "" || !amount.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	tx := &Transaction{
		ID:           id,
		Reference:    reference,
		UserID:       userID,
		PackageID:    packageID,
		Amount:       amount,
		Currency:     currency,
		Status:       PaymentStatusPending,
		RecordStatus: RecordActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if m := strings.TrimSpace(method); m != "" {
		tx.PaymentMethod = &m
	}
	return tx, nil
}

func (t *Transaction) IsZero() bool    { return t == nil || t.ID == "" }
func (t *Transaction) IsDeleted() bool { return t != nil && t.RecordStatus == RecordDeleted }

// Method returns the payment method or "" when unknown.
func (t *Transaction) Method() string {
	if t == nil || t.PaymentMethod == nil {
		return ""
	}
	return *t.PaymentMethod
}
