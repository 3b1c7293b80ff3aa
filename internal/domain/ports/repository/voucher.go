package repository

import (
	"context"

	"hotspot-billing/internal/domain/model"
)

// VoucherRepository is written only by the provisioning pipeline.
type VoucherRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Voucher) error
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Voucher, error)
	ExistsByUsername(ctx context.Context, tx Tx, username string) (bool, error)
}
