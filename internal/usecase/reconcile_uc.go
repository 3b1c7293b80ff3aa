package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ErrNoVerificationData is returned when the gateway answered without usable data.
var ErrNoVerificationData = fmt.Errorf("gateway returned no verification data: %w", domain.ErrUpstream)

// ReconcileUseCase applies gateway-side truth to local transaction state.
type ReconcileUseCase interface {
	// HandleNotification reconciles one merchant reference. The notification
	// itself is never trusted for status; the gateway is always asked.
	HandleNotification(ctx context.Context, reference string) (*ReconciliationResult, error)
}

// ReconcileOptions configures timeouts and locking.
type ReconcileOptions struct {
	VerifyTimeout time.Duration
	LockTTL       time.Duration
}

type reconcileUC struct {
	transactions repository.TransactionRepository
	gateway      adapter.PaymentGateway
	provisioning ProvisioningUseCase
	locker       adapter.Locker // optional
	opts         ReconcileOptions
	logger       *zerolog.Logger
}

func NewReconcileUseCase(
	transactions repository.TransactionRepository,
	gateway adapter.PaymentGateway,
	provisioning ProvisioningUseCase,
	locker adapter.Locker,
	opts ReconcileOptions,
	logger *zerolog.Logger,
) *reconcileUC {
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 15 * time.Second
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	lg := logger.With().Str("component", "ReconcileUseCase").Logger()
	return &reconcileUC{
		transactions: transactions,
		gateway:      gateway,
		provisioning: provisioning,
		locker:       locker,
		opts:         opts,
		logger:       &lg,
	}
}

func (u *reconcileUC) HandleNotification(ctx context.Context, reference string) (*ReconciliationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return ignored("missing transaction reference"), nil
	}
	ctx = logging.WithReference(ctx, reference)
	log := logging.With(ctx, u.logger)
	defer logging.TraceDuration(log, "ReconcileUC.HandleNotification")()

	t, res, err := u.load(ctx, reference)
	if res != nil || err != nil {
		return res, err
	}

	unlock, ok := acquire(ctx, u.locker, reference, u.opts.LockTTL, log)
	if !ok {
		return ignored("reconciliation in progress"), nil
	}
	defer unlock()

	// Re-read: another delivery may have finished while we waited.
	t, res, err = u.load(ctx, reference)
	if res != nil || err != nil {
		return res, err
	}
	return u.reconcile(ctx, t, log)
}

// load fetches the transaction and applies the short-circuit rules. A non-nil
// result means reconciliation must stop there.
func (u *reconcileUC) load(ctx context.Context, reference string) (*model.Transaction, *ReconciliationResult, error) {
	t, err := u.transactions.FindByReference(ctx, nil, reference)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ignored("transaction not found"), nil
	}
	if err != nil {
		return nil, nil, err
	}
	switch t.Status {
	case model.PaymentStatusAccepted:
		return nil, &ReconciliationResult{Outcome: OutcomeAlreadyAccepted, Status: t.Status}, nil
	case model.PaymentStatusRefused:
		r := ignored("transaction already REFUSED")
		r.Status = t.Status
		return nil, r, nil
	}
	return t, nil, nil
}

func (u *reconcileUC) reconcile(ctx context.Context, t *model.Transaction, log *zerolog.Logger) (*ReconciliationResult, error) {
	vctx, cancel := context.WithTimeout(ctx, u.opts.VerifyTimeout)
	v, err := u.gateway.Verify(vctx, t.Reference)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("gateway verification failed")
		return nil, fmt.Errorf("%w: verify %s: %v", domain.ErrUpstream, t.Reference, err)
	}
	if v == nil || v.Data == nil {
		log.Warn().Msg("gateway verification returned no data")
		return nil, ErrNoVerificationData
	}

	status := model.NormalizePaymentStatus(v.Data.Status)
	var method *string
	if m := strings.TrimSpace(v.Data.PaymentMethod); m != "" {
		method = &m
	}

	won, err := u.transactions.UpdateStatusIfOpen(ctx, nil, t.Reference, status, method)
	if err != nil {
		return nil, err
	}
	if !won {
		// Another reconciliation committed a terminal status first.
		cur, err := u.transactions.FindByReference(ctx, nil, t.Reference)
		if err == nil && cur.Status == model.PaymentStatusAccepted {
			return &ReconciliationResult{Outcome: OutcomeAlreadyAccepted, Status: cur.Status}, nil
		}
		return ignored("transaction already finalized"), nil
	}

	metrics.IncPayment(string(status))
	log.Info().Str("status", string(status)).Str("method", derefOr(method, "")).Msg("transaction status updated")

	if status != model.PaymentStatusAccepted {
		return &ReconciliationResult{Outcome: OutcomeOK, Status: status}, nil
	}

	if paid, perr := decimal.NewFromString(v.Data.Amount); perr == nil && paid.LessThan(t.Amount) {
		log.Warn().Str("paid", paid.String()).Str("expected", t.Amount.String()).Msg("gateway amount below transaction amount")
	}
	metrics.AddPaymentRevenue(t.Currency, t.Amount.InexactFloat64())

	t.Status = model.PaymentStatusAccepted
	t.PaymentMethod = method
	res := &ReconciliationResult{Outcome: OutcomeOK, Status: model.PaymentStatusAccepted}
	voucher, err := u.provisioning.Provision(ctx, t)
	if err != nil {
		// Status stays ACCEPTED: the payment is recorded even without a voucher.
		return res, err
	}
	res.Voucher = voucher
	return res, nil
}

// acquire takes the per-reference lock when a locker is configured. Without
// one, the conditional status update alone serializes reconciliations.
func acquire(ctx context.Context, locker adapter.Locker, reference string, ttl time.Duration, log *zerolog.Logger) (func(), bool) {
	if locker == nil {
		return func() {}, true
	}
	key := "lock:payment:" + reference
	token, err := locker.TryLock(ctx, key, ttl)
	if err != nil {
		log.Info().Err(err).Msg("reference locked elsewhere")
		return nil, false
	}
	return func() {
		// Unlock runs even when the request context is already cancelled.
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := locker.Unlock(uctx, key, token); err != nil {
			log.Warn().Err(err).Msg("unlock failed; lock will expire")
		}
	}, true
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
