package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/ports/adapter"
)

var _ adapter.OperatorAlerter = (*NoopAlerter)(nil)

// NoopAlerter logs alerts instead of sending them. Used when no operator chat is configured.
type NoopAlerter struct {
	logger *zerolog.Logger
}

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	lg := logger.With().Str("component", "NoopAlerter").Logger()
	return &NoopAlerter{logger: &lg}
}

func (a *NoopAlerter) Alert(ctx context.Context, text string) error {
	a.logger.Warn().Str("alert", text).Msg("operator alert")
	return nil
}
