package usecase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ PackageUseCase = (*packageUC)(nil)

// PackageUseCase owns the router-side profile of each package.
type PackageUseCase interface {
	// Sync creates the router profile for an unsynced package and marks it
	// synced. Already synced packages are returned untouched.
	Sync(ctx context.Context, packageID string) (*model.Package, error)
}

type packageUC struct {
	packages repository.PackageRepository
	router   adapter.ProfileProvisioner
	tm       repository.TransactionManager
	logger   *zerolog.Logger
}

func NewPackageUseCase(packages repository.PackageRepository, router adapter.ProfileProvisioner, tm repository.TransactionManager, logger *zerolog.Logger) *packageUC {
	lg := logger.With().Str("component", "PackageUseCase").Logger()
	return &packageUC{packages: packages, router: router, tm: tm, logger: &lg}
}

func (u *packageUC) Sync(ctx context.Context, packageID string) (*model.Package, error) {
	var out *model.Package
	// The package row stays locked while the router call runs, so two syncs
	// of one package cannot both create the profile.
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		pkg, err := u.packages.FindByID(ctx, tx, packageID)
		if err != nil {
			return err
		}
		if pkg.IsSynced && pkg.ProfileName != "" {
			out = pkg
			return nil
		}

		name, err := u.router.EnsureProfile(ctx, pkg)
		if errors.Is(err, adapter.ErrRouterDuplicate) {
			name = pkg.ProfileName
			if name == "" {
				name = pkg.DeriveProfileName()
			}
			u.logger.Info().Str("profile", name).Msg("router profile already present; adopting it")
			err = nil
		}
		if err != nil {
			return err
		}
		if name == "" {
			return domain.ErrInvariantViolation
		}

		if err := u.packages.MarkSynced(ctx, tx, pkg.ID, name); err != nil {
			return err
		}
		pkg.ProfileName = name
		pkg.IsSynced = true
		out = pkg
		return nil
	})
	if err != nil {
		metrics.IncAdminAction("package_sync", "error")
		u.logger.Error().Err(err).Str("package_id", packageID).Msg("package sync failed")
		return nil, err
	}
	metrics.IncAdminAction("package_sync", "ok")
	u.logger.Info().Str("package_id", out.ID).Str("profile", out.ProfileName).Msg("package synced")
	return out, nil
}
