package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/infra/metrics"
)

// ReportPoolStats exports postgres pool gauges every 15s until ctx ends.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, logger *zerolog.Logger) {
	if pool == nil {
		return
	}
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		s := pool.Stat()
		metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		select {
		case <-ctx.Done():
			logger.Debug().Msg("pool stats reporter stopped")
			return
		case <-t.C:
		}
	}
}
