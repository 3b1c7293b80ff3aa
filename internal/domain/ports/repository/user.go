package repository

import (
	"context"

	"hotspot-billing/internal/domain/model"
)

// UserRepository loads the payer of a transaction. Users are created by seed
// or by the payment init flow; billing never updates them.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
}
