package repository

import (
	"context"
	"time"

	"hotspot-billing/internal/domain/model"
)

// TransactionRepository is the single owner of payment transaction rows.
// Every lookup excludes soft-deleted rows.
type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Transaction, error)
	// UpdateStatusIfOpen moves a non-terminal transaction to status and records
	// the payment method. It is a compare-and-swap: false means the row was
	// already terminal (or missing) and nothing changed.
	UpdateStatusIfOpen(ctx context.Context, tx Tx, reference string, status model.PaymentStatus, method *string) (bool, error)
	// ListDueForSweep returns non-terminal transactions inside w, least
	// recently swept first.
	ListDueForSweep(ctx context.Context, tx Tx, w SweepWindow) ([]*model.Transaction, error)
	// MarkSwept records a sweep attempt so the row rotates to the back.
	MarkSwept(ctx context.Context, tx Tx, reference string, at time.Time) error
	// ListAcceptedWithoutVoucher returns ACCEPTED transactions that have no voucher yet.
	ListAcceptedWithoutVoucher(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)
}

// SweepWindow bounds which open transactions the stale-payment sweeper retries.
type SweepWindow struct {
	CreatedBefore time.Time // only rows older than this are stale
	CreatedAfter  time.Time // rows older than this are abandoned and skipped; zero means no bound
	SweptBefore   time.Time // rows swept after this are not due yet
	Limit         int
}
