package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Voucher is an issued access credential. Username is unique.
type Voucher struct {
	ID            string // ULID
	Username      string
	Password      string
	UserID        string
	PackageID     string
	TransactionID string // transaction that paid for it; unique
	GeneratedAt   time.Time
	ActivatedAt   *time.Time
	RecordStatus  RecordStatus
}

// NewVoucher builds a voucher for a confirmed transaction. In the default flow
// username and password are both the generated code.
func NewVoucher(code string, tx *Transaction) *Voucher {
	return &Voucher{
		ID:            ulid.Make().String(),
		Username:      code,
		Password:      code,
		UserID:        tx.UserID,
		PackageID:     tx.PackageID,
		TransactionID: tx.ID,
		GeneratedAt:   time.Now(),
		RecordStatus:  RecordActive,
	}
}
