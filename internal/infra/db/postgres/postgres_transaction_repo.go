package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, reference, user_id, package_id, amount, currency, payment_method, payment_status, status, created_at, updated_at`

// transactionSelect tolerates owners removed by ON DELETE SET NULL.
const transactionSelect = `t.id, t.reference, COALESCE(t.user_id::text,''), COALESCE(t.package_id::text,''), t.amount, t.currency, t.payment_method, t.payment_status, t.status, t.created_at, t.updated_at`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var status, recStatus string
	if err := row.Scan(&t.ID, &t.Reference, &t.UserID, &t.PackageID, &t.Amount, &t.Currency, &t.PaymentMethod, &status, &recStatus, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	t.Status = model.PaymentStatus(status)
	t.RecordStatus = model.RecordStatus(recStatus)
	return t, nil
}

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (` + transactionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.Reference, t.UserID, t.PackageID, t.Amount, t.Currency, t.PaymentMethod, string(t.Status), string(t.RecordStatus), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *transactionRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Transaction, error) {
	q := `SELECT ` + transactionSelect + ` FROM transactions t WHERE t.reference=$1 AND t.status <> 'delete'`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

// UpdateStatusIfOpen is the serialization point for reconciliation: only one
// caller can move a given reference out of a non-terminal status.
func (r *transactionRepo) UpdateStatusIfOpen(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus, method *string) (bool, error) {
	const q = `
UPDATE transactions
   SET payment_status = $2,
       payment_method = COALESCE($3, payment_method),
       updated_at = NOW()
 WHERE reference = $1
   AND status <> 'delete'
   AND payment_status NOT IN ('ACCEPTED','REFUSED');`

	cmd, err := execSQL(ctx, r.pool, tx, q, reference, string(status), method)
	if err != nil {
		return false, mapExecErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *transactionRepo) ListDueForSweep(ctx context.Context, tx repository.Tx, w repository.SweepWindow) ([]*model.Transaction, error) {
	if w.Limit <= 0 {
		w.Limit = 100
	}
	const q = `SELECT ` + transactionSelect + ` FROM transactions t
 WHERE t.payment_status NOT IN ('ACCEPTED','REFUSED') AND t.status <> 'delete'
   AND t.created_at < $1 AND t.created_at >= $2
   AND (t.swept_at IS NULL OR t.swept_at < $3)
 ORDER BY t.swept_at ASC NULLS FIRST, t.created_at ASC LIMIT $4;`
	return r.list(ctx, tx, q, w.CreatedBefore, w.CreatedAfter, w.SweptBefore, w.Limit)
}

func (r *transactionRepo) MarkSwept(ctx context.Context, tx repository.Tx, reference string, at time.Time) error {
	const q = `UPDATE transactions SET swept_at = $2 WHERE reference = $1 AND status <> 'delete';`
	if _, err := execSQL(ctx, r.pool, tx, q, reference, at); err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *transactionRepo) ListAcceptedWithoutVoucher(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + transactionSelect + `
  FROM transactions t
  LEFT JOIN vouchers v ON v.transaction_id = t.id
 WHERE t.payment_status = 'ACCEPTED' AND t.status <> 'delete' AND v.id IS NULL AND t.updated_at < $1
 ORDER BY t.updated_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, olderThan, limit)
}

func (r *transactionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Transaction, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
