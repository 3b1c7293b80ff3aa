package repository

import (
	"context"

	"hotspot-billing/internal/domain/model"
)

// PackageRepository is the port for package persistence.
type PackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Package) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Package, error)
	// MarkSynced records the router-side profile and flips is_synced.
	MarkSynced(ctx context.Context, tx Tx, id string, profileName string) error
}
