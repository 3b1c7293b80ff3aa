package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/domain/model"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
)

// Compile-time check
var _ ProvisioningUseCase = (*provisioningUC)(nil)

// ProvisioningUseCase issues the voucher for a transaction that just became ACCEPTED.
type ProvisioningUseCase interface {
	// Provision creates the router credential, stores the voucher and queues
	// the customer e-mail. It never changes the transaction status.
	Provision(ctx context.Context, t *model.Transaction) (*model.Voucher, error)
}

// ProvisioningOptions tunes voucher code generation.
type ProvisioningOptions struct {
	CodeLength      int
	MaxCodeAttempts int
	Dev             bool // log voucher codes in clear
}

type provisioningUC struct {
	packages repository.PackageRepository
	vouchers repository.VoucherRepository
	users    repository.UserRepository
	router   adapter.ProfileProvisioner
	notifier adapter.Notifier
	alerter  adapter.OperatorAlerter
	queue    adapter.TaskQueue
	opts     ProvisioningOptions
	logger   *zerolog.Logger
}

func NewProvisioningUseCase(
	packages repository.PackageRepository,
	vouchers repository.VoucherRepository,
	users repository.UserRepository,
	router adapter.ProfileProvisioner,
	notifier adapter.Notifier,
	alerter adapter.OperatorAlerter,
	queue adapter.TaskQueue,
	opts ProvisioningOptions,
	logger *zerolog.Logger,
) *provisioningUC {
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultVoucherCodeLength
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = 3
	}
	lg := logger.With().Str("component", "ProvisioningUseCase").Logger()
	return &provisioningUC{
		packages: packages,
		vouchers: vouchers,
		users:    users,
		router:   router,
		notifier: notifier,
		alerter:  alerter,
		queue:    queue,
		opts:     opts,
		logger:   &lg,
	}
}

func (u *provisioningUC) Provision(ctx context.Context, t *model.Transaction) (*model.Voucher, error) {
	log := logging.With(ctx, u.logger).With().Str("reference", t.Reference).Logger()
	defer logging.TraceDuration(&log, "ProvisioningUC.Provision")()

	pkg, err := u.packages.FindByID(ctx, nil, t.PackageID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, u.fail(ctx, t, "invariant", fmt.Errorf("%w: package %s missing", domain.ErrInvariantViolation, t.PackageID))
	case err != nil:
		return nil, u.fail(ctx, t, "store_error", fmt.Errorf("load package: %w", err))
	case !pkg.CanIssueVouchers():
		return nil, u.fail(ctx, t, "invariant", fmt.Errorf("%w: package %s has no router profile", domain.ErrInvariantViolation, pkg.ID))
	}

	code, err := u.createRouterVoucher(ctx, pkg.ProfileName)
	if err != nil {
		return nil, u.fail(ctx, t, routerFailureLabel(err), err)
	}

	v := model.NewVoucher(code, t)
	if err := u.vouchers.Save(ctx, nil, v); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// A concurrent path provisioned this transaction first.
			if existing, ferr := u.vouchers.FindByTransactionID(ctx, nil, t.ID); ferr == nil {
				log.Warn().Str("orphan_router_user", logging.Redact(code, u.opts.Dev)).Msg("voucher already stored for transaction; router user left unused")
				return existing, nil
			}
		}
		return nil, u.fail(ctx, t, "store_error", fmt.Errorf("save voucher: %w", err))
	}

	metrics.IncProvisioning("ok")
	log.Info().Str("voucher", logging.Redact(code, u.opts.Dev)).Str("profile", pkg.ProfileName).Msg("voucher provisioned")

	u.dispatchConfirmation(ctx, t, v)
	return v, nil
}

// createRouterVoucher draws codes until one is free locally and accepted by
// the router, at most MaxCodeAttempts times.
func (u *provisioningUC) createRouterVoucher(ctx context.Context, profile string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= u.opts.MaxCodeAttempts; attempt++ {
		code, err := generateVoucherCode(u.opts.CodeLength)
		if err != nil {
			return "", fmt.Errorf("generate voucher code: %w", err)
		}
		taken, err := u.vouchers.ExistsByUsername(ctx, nil, code)
		if err != nil {
			return "", fmt.Errorf("check voucher code: %w", err)
		}
		if taken {
			lastErr = fmt.Errorf("code collision on attempt %d", attempt)
			continue
		}

		if _, err := u.router.CreateVoucher(ctx, code, code, profile); err != nil {
			if errors.Is(err, adapter.ErrRouterDuplicate) {
				lastErr = err
				continue
			}
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("%w: no unused voucher code after %d attempts: %v", adapter.ErrRouterDuplicate, u.opts.MaxCodeAttempts, lastErr)
}

func (u *provisioningUC) dispatchConfirmation(ctx context.Context, t *model.Transaction, v *model.Voucher) {
	log := logging.With(ctx, u.logger).With().Str("reference", t.Reference).Logger()

	user, err := u.users.FindByID(ctx, nil, t.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("user lookup failed; confirmation skipped")
		metrics.IncNotification("email", "skipped")
		return
	}
	email := user.ContactEmail()
	if email == "" || u.notifier == nil {
		metrics.IncNotification("email", "skipped")
		return
	}

	msg := adapter.PaymentConfirmation{
		To:          email,
		Amount:      t.Amount,
		Currency:    t.Currency,
		Reference:   t.Reference,
		VoucherCode: v.Username,
	}
	task := func(ctx context.Context) error { return u.notifier.SendPaymentConfirmation(ctx, msg) }
	if err := u.queue.Submit(task); err != nil {
		metrics.IncNotification("email", "dropped")
		log.Warn().Err(err).Msg("confirmation e-mail not queued")
	}
}

// fail records a provisioning failure and pages operators: the payment is
// recorded but the customer has no voucher yet.
func (u *provisioningUC) fail(ctx context.Context, t *model.Transaction, label string, err error) error {
	metrics.IncProvisioning(label)
	logging.With(ctx, u.logger).Error().Err(err).Str("reference", t.Reference).Str("status", string(t.Status)).Msg("voucher provisioning failed")

	if u.alerter != nil {
		text := fmt.Sprintf("Payment %s is %s but no voucher was issued: %v. Use manual activation once fixed.", t.Reference, t.Status, err)
		alert := func(ctx context.Context) error { return u.alerter.Alert(ctx, text) }
		if qerr := u.queue.Submit(alert); qerr != nil {
			u.logger.Warn().Err(qerr).Str("reference", t.Reference).Msg("operator alert not queued")
		}
	}
	return err
}

func routerFailureLabel(err error) string {
	switch {
	case errors.Is(err, adapter.ErrRouterCommunication):
		return "router_unreachable"
	case errors.Is(err, adapter.ErrRouterRejected):
		return "router_rejected"
	default:
		return "store_error"
	}
}
