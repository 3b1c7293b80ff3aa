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

var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct{ pool *pgxpool.Pool }

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	const q = `
INSERT INTO packages (id, name, price, validity_hours, rate_limit, profile_name, is_synced, status, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price=$3, validity_hours=$4, rate_limit=$5, profile_name=NULLIF($6,''), is_synced=$7, status=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Price, p.ValidityHours, p.RateLimit, p.ProfileName, p.IsSynced, string(p.RecordStatus), p.CreatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	return nil
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	q := `SELECT id, name, price, validity_hours, rate_limit, COALESCE(profile_name,''), is_synced, status, created_at
  FROM packages WHERE id=$1 AND status <> 'delete'`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	p := &model.Package{}
	var status string
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.ValidityHours, &p.RateLimit, &p.ProfileName, &p.IsSynced, &status, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.RecordStatus = model.RecordStatus(status)
	return p, nil
}

func (r *packageRepo) MarkSynced(ctx context.Context, tx repository.Tx, id string, profileName string) error {
	const q = `UPDATE packages SET profile_name=$2, is_synced=TRUE WHERE id=$1 AND status <> 'delete';`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, profileName)
	if err != nil {
		return mapExecErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
