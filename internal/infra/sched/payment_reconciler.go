package sched

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/metrics"
	"hotspot-billing/internal/usecase"
)

// PaymentReconciler periodically re-reconciles stale open transactions through
// the same path as the webhook, covering lost notifications and crashes
// mid-reconcile. It also reports ACCEPTED transactions left without voucher.
//
// Each swept row is stamped, and rows are picked least recently swept first,
// so transactions the gateway keeps open cannot starve newer ones. Rows older
// than MaxAge are treated as abandoned checkouts and no longer swept.
type PaymentReconciler struct {
	uc           usecase.ReconcileUseCase
	transactions repository.TransactionRepository
	alerter      adapter.OperatorAlerter
	opts         ReconcilerOptions
	now          func() time.Time
	logger       *zerolog.Logger

	reported map[string]struct{} // stuck references already alerted
}

// ReconcilerOptions configures the sweep cadence and age bounds.
type ReconcilerOptions struct {
	Interval   time.Duration // how often to scan
	StaleAfter time.Duration // age before an open transaction is retried, and the gap between retries
	StuckAfter time.Duration // grace period before an unprovisioned ACCEPTED is reported
	MaxAge     time.Duration // open transactions older than this are abandoned
	Batch      int
}

func NewPaymentReconciler(uc usecase.ReconcileUseCase, transactions repository.TransactionRepository, alerter adapter.OperatorAlerter, opts ReconcilerOptions, logger *zerolog.Logger) *PaymentReconciler {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	if opts.StuckAfter <= 0 {
		opts.StuckAfter = 15 * time.Minute
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 72 * time.Hour
	}
	if opts.Batch <= 0 {
		opts.Batch = 200
	}
	lg := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		uc:           uc,
		transactions: transactions,
		alerter:      alerter,
		opts:         opts,
		now:          time.Now,
		logger:       &lg,
		reported:     map[string]struct{}{},
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.opts.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	w.sweepOpen(ctx)
	w.reportStuck(ctx)
}

func (w *PaymentReconciler) sweepOpen(ctx context.Context) {
	now := w.now()
	open, err := w.transactions.ListDueForSweep(ctx, nil, repository.SweepWindow{
		CreatedBefore: now.Add(-w.opts.StaleAfter),
		CreatedAfter:  now.Add(-w.opts.MaxAge),
		SweptBefore:   now.Add(-w.opts.StaleAfter),
		Limit:         w.opts.Batch,
	})
	if err != nil {
		w.logger.Error().Err(err).Msg("list open transactions failed")
		return
	}
	for _, t := range open {
		if ctx.Err() != nil {
			return
		}
		// stamp first so a failing verify still rotates the row
		if err := w.transactions.MarkSwept(ctx, nil, t.Reference, now); err != nil {
			w.logger.Warn().Err(err).Str("reference", t.Reference).Msg("mark swept failed")
		}
		res, err := w.uc.HandleNotification(ctx, t.Reference)
		if err != nil {
			w.logger.Warn().Err(err).Str("reference", t.Reference).Msg("re-reconcile failed")
			continue
		}
		w.logger.Debug().Str("reference", t.Reference).Str("outcome", string(res.Outcome)).Str("status", string(res.Status)).Msg("re-reconciled")
	}
}

func (w *PaymentReconciler) reportStuck(ctx context.Context) {
	cutoff := w.now().Add(-w.opts.StuckAfter)
	stuck, err := w.transactions.ListAcceptedWithoutVoucher(ctx, nil, cutoff, w.opts.Batch)
	if err != nil {
		w.logger.Error().Err(err).Msg("list stuck transactions failed")
		return
	}
	metrics.SetAcceptedWithoutVoucher(len(stuck))

	current := make(map[string]struct{}, len(stuck))
	var fresh []string
	for _, t := range stuck {
		current[t.Reference] = struct{}{}
		if _, seen := w.reported[t.Reference]; !seen {
			fresh = append(fresh, t.Reference)
		}
	}
	w.reported = current
	if len(fresh) == 0 || w.alerter == nil {
		return
	}

	text := fmt.Sprintf("%d paid transaction(s) still have no voucher: %s", len(fresh), strings.Join(fresh, ", "))
	if err := w.alerter.Alert(ctx, text); err != nil {
		w.logger.Warn().Err(err).Msg("stuck transaction alert failed")
	}
}
