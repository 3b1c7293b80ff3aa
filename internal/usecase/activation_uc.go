package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// ActivationUseCase is the operator path that confirms a payment by hand and
// issues its voucher without waiting for the gateway.
type ActivationUseCase interface {
	// Activate is idempotent: a transaction that already has a voucher is
	// never provisioned twice.
	Activate(ctx context.Context, reference string) (*ReconciliationResult, error)
}

type activationUC struct {
	transactions repository.TransactionRepository
	vouchers     repository.VoucherRepository
	provisioning ProvisioningUseCase
	locker       adapter.Locker // optional
	lockTTL      time.Duration
	logger       *zerolog.Logger
}

func NewActivationUseCase(
	transactions repository.TransactionRepository,
	vouchers repository.VoucherRepository,
	provisioning ProvisioningUseCase,
	locker adapter.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *activationUC {
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	lg := logger.With().Str("component", "ActivationUseCase").Logger()
	return &activationUC{
		transactions: transactions,
		vouchers:     vouchers,
		provisioning: provisioning,
		locker:       locker,
		lockTTL:      lockTTL,
		logger:       &lg,
	}
}

func (u *activationUC) Activate(ctx context.Context, reference string) (*ReconciliationResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty transaction reference", domain.ErrInvalidArgument)
	}
	ctx = logging.WithReference(ctx, reference)
	log := logging.With(ctx, u.logger)

	unlock, ok := acquire(ctx, u.locker, reference, u.lockTTL, log)
	if !ok {
		metrics.IncAdminAction("activate", "error")
		return nil, domain.ErrLockNotAcquired
	}
	defer unlock()

	t, err := u.transactions.FindByReference(ctx, nil, reference)
	if err != nil {
		metrics.IncAdminAction("activate", "error")
		return nil, err
	}

	existing, err := u.vouchers.FindByTransactionID(ctx, nil, t.ID)
	switch {
	case err == nil:
		metrics.IncAdminAction("activate", "ok")
		return &ReconciliationResult{Outcome: OutcomeAlreadyProvisioned, Status: t.Status, Voucher: existing}, nil
	case !errors.Is(err, domain.ErrNotFound):
		metrics.IncAdminAction("activate", "error")
		return nil, err
	}

	if err := u.markAccepted(ctx, t); err != nil {
		metrics.IncAdminAction("activate", "error")
		return nil, err
	}

	res := &ReconciliationResult{Outcome: OutcomeOK, Status: model.PaymentStatusAccepted}
	voucher, err := u.provisioning.Provision(ctx, t)
	if err != nil {
		metrics.IncAdminAction("activate", "error")
		return res, err
	}
	res.Voucher = voucher
	metrics.IncAdminAction("activate", "ok")
	log.Info().Str("method", t.Method()).Msg("transaction activated manually")
	return res, nil
}

// markAccepted moves t to ACCEPTED with method MANUAL. An ACCEPTED transaction
// without voucher is left as is so it can be provisioned again.
func (u *activationUC) markAccepted(ctx context.Context, t *model.Transaction) error {
	switch t.Status {
	case model.PaymentStatusAccepted:
		return nil
	case model.PaymentStatusRefused:
		return fmt.Errorf("%w: transaction %s is REFUSED", domain.ErrInvalidTransition, t.Reference)
	}

	method := model.PaymentMethodManual
	won, err := u.transactions.UpdateStatusIfOpen(ctx, nil, t.Reference, model.PaymentStatusAccepted, &method)
	if err != nil {
		return err
	}
	if !won {
		cur, err := u.transactions.FindByReference(ctx, nil, t.Reference)
		if err != nil {
			return err
		}
		if cur.Status != model.PaymentStatusAccepted {
			return fmt.Errorf("%w: transaction %s is %s", domain.ErrInvalidTransition, t.Reference, cur.Status)
		}
		*t = *cur
		return nil
	}

	metrics.IncPayment(string(model.PaymentStatusAccepted))
	t.Status = model.PaymentStatusAccepted
	t.PaymentMethod = &method
	return nil
}
