package mikrotik

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.ProfileProvisioner = (*NoopProvisioner)(nil)

// NoopProvisioner keeps profiles and users in memory. Used in dev mode when no
// router is reachable.
type NoopProvisioner struct {
	mu       sync.Mutex
	profiles map[string]struct{}
	users    map[string]string
	logger   *zerolog.Logger
}

func NewNoopProvisioner(logger *zerolog.Logger) *NoopProvisioner {
	lg := logger.With().Str("component", "NoopProvisioner").Logger()
	return &NoopProvisioner{profiles: map[string]struct{}{}, users: map[string]string{}, logger: &lg}
}

func (p *NoopProvisioner) EnsureProfile(ctx context.Context, pkg *model.Package) (string, error) {
	name := pkg.ProfileName
	if name == "" {
		name = pkg.DeriveProfileName()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.profiles[name]; ok {
		return "", fmt.Errorf("%w: profile %s", adapter.ErrRouterDuplicate, name)
	}
	p.profiles[name] = struct{}{}
	p.logger.Info().Str("profile", name).Msg("profile created (noop)")
	return name, nil
}

func (p *NoopProvisioner) CreateVoucher(ctx context.Context, username, password, profile string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[username]; ok {
		return "", fmt.Errorf("%w: user %s", adapter.ErrRouterDuplicate, username)
	}
	p.users[username] = profile
	p.logger.Info().Str("profile", profile).Msg("voucher user created (noop)")
	return username, nil
}
