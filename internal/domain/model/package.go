package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hotspot-billing/internal/domain"
)

// DefaultRateLimit is applied to packages created without an explicit limit.
const DefaultRateLimit = "1M/1M"

// Package is a purchasable access tier backed by a router-side profile.
type Package struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	ValidityHours int
	RateLimit     string // router rate-limit notation rx/tx, e.g. "1M/1M"
	ProfileName   string // router-side profile, empty until synced
	IsSynced      bool
	RecordStatus  RecordStatus
	CreatedAt     time.Time
}

func NewPackage(id, name string, price decimal.Decimal, validityHours int, rateLimit string) (*Package, error) {
	if id == "" || strings.TrimSpace(name) == "" || !price.IsPositive() || validityHours <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if strings.TrimSpace(rateLimit) == "" {
		rateLimit = DefaultRateLimit
	}
	return &Package{
		ID:            id,
		Name:          strings.TrimSpace(name),
		Price:         price,
		ValidityHours: validityHours,
		RateLimit:     rateLimit,
		RecordStatus:  RecordActive,
		CreatedAt:     time.Now(),
	}, nil
}

func (p *Package) IsZero() bool { return p == nil || p.ID == "" }

// CanIssueVouchers reports whether the router-side profile exists.
func (p *Package) CanIssueVouchers() bool {
	return p != nil && p.RecordStatus != RecordDeleted && strings.TrimSpace(p.ProfileName) != ""
}

// DeriveProfileName builds "<hours>H-<down rate>", e.g. 5 hours at 1M/1M -> "5H-1M".
func (p *Package) DeriveProfileName() string {
	rate := p.RateLimit
	if rate == "" {
		rate = DefaultRateLimit
	}
	if i := strings.Index(rate, "/"); i > 0 {
		rate = rate[:i]
	}
	return fmt.Sprintf("%dH-%s", p.ValidityHours, strings.ToUpper(rate))
}

// Validity renders the validity as router duration notation.
func (p *Package) Validity() string { return fmt.Sprintf("%dh", p.ValidityHours) }
