package mikrotik

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-routeros/routeros/v3"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.ProfileProvisioner = (*RouterOSProvisioner)(nil)

const (
	profileAddCommand = "/tool/user-manager/profile/add"
	userAddCommand    = "/tool/user-manager/user/add"
)

// conn is the part of *routeros.Client the provisioner needs.
type conn interface {
	RunArgs(sentence []string) (*routeros.Reply, error)
	Close() error
}

type dialFunc func(ctx context.Context) (conn, error)

// RouterOSProvisioner talks to the MikroTik user manager over the RouterOS API.
// Each call opens its own authenticated session, so it is safe for concurrent use.
type RouterOSProvisioner struct {
	dial    dialFunc
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewRouterOSProvisioner(cfg config.RouterConfig, logger *zerolog.Logger) (*RouterOSProvisioner, error) {
	if cfg.Address == "" || cfg.Username == "" {
		return nil, errors.New("router address or username empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dial := func(ctx context.Context) (conn, error) {
		d := timeout
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < d {
			d = time.Until(dl)
		}
		if cfg.UseTLS {
			return routeros.DialTLSTimeout(cfg.Address, cfg.Username, cfg.Password, &tls.Config{MinVersion: tls.VersionTLS12}, d)
		}
		return routeros.DialTimeout(cfg.Address, cfg.Username, cfg.Password, d)
	}
	return newProvisioner(dial, timeout, logger), nil
}

func newProvisioner(dial dialFunc, timeout time.Duration, logger *zerolog.Logger) *RouterOSProvisioner {
	lg := logger.With().Str("component", "RouterOSProvisioner").Logger()
	return &RouterOSProvisioner{dial: dial, timeout: timeout, logger: &lg}
}

// EnsureProfile creates the user-manager profile backing pkg.
func (p *RouterOSProvisioner) EnsureProfile(ctx context.Context, pkg *model.Package) (string, error) {
	if pkg == nil {
		return "", fmt.Errorf("%w: nil package", adapter.ErrRouterRejected)
	}
	name := pkg.ProfileName
	if name == "" {
		name = pkg.DeriveProfileName()
	}
	rate := pkg.RateLimit
	if rate == "" {
		rate = model.DefaultRateLimit
	}
	err := p.run(ctx, "profile", []string{
		profileAddCommand,
		"=name=" + name,
		"=validity=" + pkg.Validity(),
		"=rate-limit=" + rate,
		"=price=" + pkg.Price.String(),
	})
	if err != nil {
		return "", err
	}
	p.logger.Info().Str("profile", name).Str("package_id", pkg.ID).Msg("router profile created")
	return name, nil
}

// CreateVoucher creates a user-manager user bound to profile.
func (p *RouterOSProvisioner) CreateVoucher(ctx context.Context, username, password, profile string) (string, error) {
	if password == "" {
		password = username
	}
	err := p.run(ctx, "voucher", []string{
		userAddCommand,
		"=username=" + username,
		"=password=" + password,
		"=profile=" + profile,
	})
	if err != nil {
		return "", err
	}
	return username, nil
}

// run executes one sentence on a fresh connection and classifies failures.
func (p *RouterOSProvisioner) run(ctx context.Context, op string, sentence []string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := p.dial(ctx)
	if err != nil {
		p.logger.Error().Err(err).Str("op", op).Msg("router connection failed")
		return fmt.Errorf("%w: %s: %v", adapter.ErrRouterCommunication, op, err)
	}
	// Closing the connection unblocks RunArgs once ctx expires.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer func() {
		if stop() {
			_ = c.Close()
		}
	}()

	_, err = c.RunArgs(sentence)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		p.logger.Error().Err(err).Str("op", op).Msg("router call timed out")
		return fmt.Errorf("%w: %s: %v", adapter.ErrRouterCommunication, op, ctx.Err())
	}
	var devErr *routeros.DeviceError
	if errors.As(err, &devErr) {
		p.logger.Warn().Err(err).Str("op", op).Msg("router rejected request")
		if isDuplicate(devErr.Error()) {
			return fmt.Errorf("%w: %s: %v", adapter.ErrRouterDuplicate, op, err)
		}
		return fmt.Errorf("%w: %s: %v", adapter.ErrRouterRejected, op, err)
	}
	p.logger.Error().Err(err).Str("op", op).Msg("router communication failed")
	return fmt.Errorf("%w: %s: %v", adapter.ErrRouterCommunication, op, err)
}

func isDuplicate(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "already have") || strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
