package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"hotspot-billing/internal/infra/api"
	"hotspot-billing/internal/infra/metrics"
	"hotspot-billing/internal/infra/sched"
	red "hotspot-billing/internal/infra/redis"
)

func serveCmd(flags *rootFlags) *cobra.Command {
	var noopGateway bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the worker pool and the payment reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, noopGateway)
		},
	}
	cmd.Flags().BoolVar(&noopGateway, "noop-gateway", false, "use the in-memory payment gateway instead of CinetPay")
	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, noopGateway bool) error {
	a, err := buildApp(ctx, flags, noopGateway)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.logger
	cfg := a.cfg

	metrics.MustRegister()
	metrics.SetBuildInfo(Version, Commit)
	if cfg.Runtime.Dev {
		log.Warn().Msg("dev mode enabled")
	}

	// The queue outlives ctx: it is stopped below, after every producer is done.
	a.queue.Start(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reconciler := sched.NewPaymentReconciler(a.reconcile, a.transactions, a.alerter,
		sched.ReconcilerOptions{
			Interval:   cfg.Reconciler.Interval,
			StaleAfter: cfg.Reconciler.StaleAfter,
			StuckAfter: cfg.Reconciler.StuckAfter,
			MaxAge:     cfg.Reconciler.MaxAge,
		}, log)
	var producers sync.WaitGroup
	producers.Add(1)
	go func() {
		defer producers.Done()
		reconciler.Start(ctx)
	}()
	go sched.ReportPoolStats(ctx, a.pool, log)

	deps := api.Deps{
		Payments:       a.payments,
		Reconcile:      a.reconcile,
		Activate:       a.activation,
		Packages:       a.packageUC,
		Auth:           api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TTL),
		Health:         map[string]api.Pinger{"postgres": a.pool},
		RequestTimeout: cfg.Server.RequestTimeout,
		InitRateLimit:  cfg.Server.InitRateLimit,
	}
	if v, ok := a.gateway.(api.NotificationVerifier); ok {
		deps.Verifier = v
	}
	if a.redis != nil {
		deps.Limiter = red.NewRateLimiter(a.redis)
		deps.Health["redis"] = a.redis
	}

	srv := api.NewServer(deps, log)
	serveErr := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Server.Port))
	cancel()

	// HTTP handlers and the sweeper have returned; no more tasks can arrive.
	producers.Wait()
	a.queue.Stop()

	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
