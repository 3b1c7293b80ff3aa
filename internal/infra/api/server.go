package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"hotspot-billing/internal/usecase"
)

// NotificationVerifier authenticates webhook deliveries before they are
// reconciled. CinetPayGateway implements it.
type NotificationVerifier interface {
	VerifyNotification(form url.Values, token string) bool
}

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries everything the HTTP surface calls into.
type Deps struct {
	Payments  usecase.PaymentUseCase
	Reconcile usecase.ReconcileUseCase
	Activate  usecase.ActivationUseCase
	Packages  usecase.PackageUseCase
	Verifier  NotificationVerifier // optional
	Auth      *AuthManager
	Limiter   Limiter // optional
	Health    map[string]Pinger

	RequestTimeout time.Duration
	InitRateLimit  int
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}
	lg := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{d: d, log: &lg}
}

// Routes builds the chi router with the middleware chain applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.d.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/payments", func(r chi.Router) {
		r.With(RateLimit(s.d.Limiter, "payments_init", s.d.InitRateLimit, time.Minute, s.log)).
			Post("/init", s.handleInit)
		r.Get("/notify", s.handleNotifyProbe)
		r.Post("/notify", s.handleNotify)
		r.With(s.d.Auth.Requires(ScopePaymentsActivate)).
			Post("/activate-forfait/{transaction_id}", s.handleActivate)
	})
	r.With(s.d.Auth.Requires(ScopePackagesSync)).
		Post("/packages/{package_id}/sync", s.handleSync)
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then drains it.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
