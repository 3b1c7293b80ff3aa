package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/domain/ports/repository"
	"hotspot-billing/internal/infra/adapters/mail"
	"hotspot-billing/internal/infra/adapters/mikrotik"
	payAdapters "hotspot-billing/internal/infra/adapters/payment"
	tele "hotspot-billing/internal/infra/adapters/telegram"
	pg "hotspot-billing/internal/infra/db/postgres"
	"hotspot-billing/internal/infra/logging"
	red "hotspot-billing/internal/infra/redis"
	"hotspot-billing/internal/infra/worker"
	"hotspot-billing/internal/usecase"
)

// app holds every long-lived dependency built from config.
type app struct {
	cfg    *config.Config
	logger *zerolog.Logger

	pool  *pgxpool.Pool
	redis *red.Client // nil when redis.url is empty

	transactions repository.TransactionRepository
	packages     repository.PackageRepository
	vouchers     repository.VoucherRepository
	users        repository.UserRepository
	tm           repository.TransactionManager

	gateway  adapter.PaymentGateway
	router   adapter.ProfileProvisioner
	notifier adapter.Notifier
	alerter  adapter.OperatorAlerter
	locker   adapter.Locker
	queue    *worker.Pool

	provisioning usecase.ProvisioningUseCase
	reconcile    usecase.ReconcileUseCase
	activation   usecase.ActivationUseCase
	payments     usecase.PaymentUseCase
	packageUC    usecase.PackageUseCase
}

func loadConfig(flags *rootFlags) (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.LoadConfig(flags.configPath, flags.dev)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	return cfg, logger, nil
}

// buildApp connects to postgres and redis and constructs adapters and use
// cases. Optional collaborators (redis, mail, telegram) degrade with a warning.
func buildApp(ctx context.Context, flags *rootFlags, noopGateway bool) (*app, error) {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	// ---- Postgres ----
	a.pool, err = pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	// ---- Redis (optional) ----
	if cfg.Redis.URL != "" {
		a.redis, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			a.pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.locker = red.NewLocker(a.redis)
	} else {
		logger.Warn().Msg("redis.url empty: no distributed lock, no package cache, no rate limit")
	}

	// ---- Repositories ----
	a.transactions = pg.NewTransactionRepo(a.pool)
	a.vouchers = pg.NewVoucherRepo(a.pool)
	a.users = pg.NewUserRepo(a.pool)
	a.tm = pg.NewTxManager(a.pool)
	a.packages = pg.NewPackageRepo(a.pool)
	if a.redis != nil {
		a.packages = pg.NewPackageRepoCacheDecorator(a.packages, a.redis, cfg.Redis.CacheTTL)
	}

	// ---- Adapters ----
	if noopGateway {
		logger.Warn().Msg("using in-memory payment gateway")
		a.gateway = payAdapters.NewNoopPaymentGateway()
	} else {
		gw, err := payAdapters.NewCinetPayGateway(cfg.Payment.CinetPay)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("cinetpay: %w", err)
		}
		a.gateway = gw
	}

	if rt, err := mikrotik.NewRouterOSProvisioner(cfg.Router, logger); err == nil {
		a.router = rt
	} else if cfg.Runtime.Dev {
		logger.Warn().Err(err).Msg("router not configured: using in-memory provisioner")
		a.router = mikrotik.NewNoopProvisioner(logger)
	} else {
		a.close()
		return nil, fmt.Errorf("router: %w", err)
	}

	if n, err := mail.NewSMTPNotifier(cfg.Mail, logger); err == nil {
		a.notifier = n
	} else {
		logger.Warn().Err(err).Msg("mail disabled: confirmations will not be sent")
	}

	if al, err := tele.NewOperatorAlerter(cfg.Telegram, logger); err == nil {
		a.alerter = al
	} else {
		logger.Warn().Err(err).Msg("telegram disabled: operator alerts go to the log")
		a.alerter = tele.NewNoopAlerter(logger)
	}

	// ---- Background queue ----
	a.queue = worker.NewPool(cfg.Worker.Count, logger)

	// ---- Use cases ----
	a.provisioning = usecase.NewProvisioningUseCase(a.packages, a.vouchers, a.users, a.router, a.notifier, a.alerter, a.queue,
		usecase.ProvisioningOptions{
			CodeLength:      cfg.Provisioning.CodeLength,
			MaxCodeAttempts: cfg.Provisioning.MaxCodeAttempts,
			Dev:             cfg.Runtime.Dev,
		}, logger)
	a.reconcile = usecase.NewReconcileUseCase(a.transactions, a.gateway, a.provisioning, a.locker,
		usecase.ReconcileOptions{VerifyTimeout: cfg.Payment.CinetPay.Timeout, LockTTL: cfg.Redis.LockTTL}, logger)
	a.activation = usecase.NewActivationUseCase(a.transactions, a.vouchers, a.provisioning, a.locker, cfg.Redis.LockTTL, logger)
	cp := cfg.Payment.CinetPay
	a.payments = usecase.NewPaymentUseCase(a.transactions, a.packages, a.users, a.gateway, usecase.PaymentOptions{
		Currency:  cp.Currency,
		NotifyURL: cp.NotifyURL,
		ReturnURL: cp.ReturnURL,
		Channels:  cp.Channels,
		Timeout:   cp.Timeout,
	}, logger)
	a.packageUC = usecase.NewPackageUseCase(a.packages, a.router, a.tm, logger)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
