package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct{ pool *pgxpool.Pool }

func NewVoucherRepo(pool *pgxpool.Pool) *voucherRepo {
	return &voucherRepo{pool: pool}
}

// Save inserts a voucher. The unique transaction_id turns a second voucher for
// the same payment into ErrAlreadyExists.
func (r *voucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (id, username, password, user_id, package_id, transaction_id, generated_at, activated_at, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q, v.ID, v.Username, v.Password, v.UserID, v.PackageID, v.TransactionID, v.GeneratedAt, v.ActivatedAt, string(v.RecordStatus))
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *voucherRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Voucher, error) {
	const q = `SELECT id, username, password, COALESCE(user_id::text,''), COALESCE(package_id::text,''), COALESCE(transaction_id::text,''), generated_at, activated_at, status
  FROM vouchers WHERE transaction_id=$1 AND status <> 'delete';`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}

	v := &model.Voucher{}
	var status string
	if err := row.Scan(&v.ID, &v.Username, &v.Password, &v.UserID, &v.PackageID, &v.TransactionID, &v.GeneratedAt, &v.ActivatedAt, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	v.RecordStatus = model.RecordStatus(status)
	return v, nil
}

func (r *voucherRepo) ExistsByUsername(ctx context.Context, tx repository.Tx, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM vouchers WHERE username=$1);`
	row, err := pickRow(ctx, r.pool, tx, q, username)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}
