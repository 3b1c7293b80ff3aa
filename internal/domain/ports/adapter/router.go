package adapter

import (
	"context"
	"fmt"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
)

var (
	// ErrRouterCommunication covers network, login and timeout failures.
	ErrRouterCommunication = fmt.Errorf("router communication failure: %w", domain.ErrUpstream)
	// ErrRouterRejected means the router answered with a structured error.
	ErrRouterRejected = fmt.Errorf("router rejected request: %w", domain.ErrRemoteRejected)
	// ErrRouterDuplicate is the rejection raised for an already used name.
	ErrRouterDuplicate = fmt.Errorf("duplicate name: %w", ErrRouterRejected)
)

// ProfileProvisioner is the port for the router-side user-manager API.
// Neither call is retried internally.
type ProfileProvisioner interface {
	// EnsureProfile creates the rate-limited profile for pkg and returns its name.
	EnsureProfile(ctx context.Context, pkg *model.Package) (string, error)
	// CreateVoucher creates a credential bound to profile and returns the username.
	CreateVoucher(ctx context.Context, username, password, profile string) (string, error)
}
