package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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
var _ PaymentUseCase = (*paymentUC)(nil)

// GatewayUnreachableCode is reported in place of a gateway answer when the
// checkout call failed in transport.
const GatewayUnreachableCode = "UNREACHABLE"

type PaymentUseCase interface {
	// Initiate stores a PENDING transaction and opens a checkout session.
	// Gateway failures are returned inside the result, not as errors.
	Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error)
}

type InitiateInput struct {
	UserID        string
	PackageID     string
	Amount        decimal.Decimal // zero means the package price
	PaymentMethod string
}

type InitiateResult struct {
	Reference       string
	PaymentURL      string
	GatewayResponse map[string]any
	Email           string
}

// PaymentOptions carries the checkout settings shared by every initiation.
type PaymentOptions struct {
	Currency    string
	NotifyURL   string
	ReturnURL   string
	Channels    string
	Description string
	Timeout     time.Duration
}

type paymentUC struct {
	transactions repository.TransactionRepository
	packages     repository.PackageRepository
	users        repository.UserRepository
	gateway      adapter.PaymentGateway
	opts         PaymentOptions
	logger       *zerolog.Logger
}

func NewPaymentUseCase(
	transactions repository.TransactionRepository,
	packages repository.PackageRepository,
	users repository.UserRepository,
	gateway adapter.PaymentGateway,
	opts PaymentOptions,
	logger *zerolog.Logger,
) *paymentUC {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Description == "" {
		opts.Description = "Abonnement WiFi Zone"
	}
	lg := logger.With().Str("component", "PaymentUseCase").Logger()
	return &paymentUC{
		transactions: transactions,
		packages:     packages,
		users:        users,
		gateway:      gateway,
		opts:         opts,
		logger:       &lg,
	}
}

// NewReference returns a fresh merchant reference, e.g. TX-9f86d081884c7d65.
func NewReference() string {
	id := uuid.New()
	return "TX-" + strings.ReplaceAll(id.String(), "-", "")[:16]
}

func (u *paymentUC) Initiate(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	if _, err := uuid.Parse(in.UserID); err != nil {
		return nil, fmt.Errorf("%w: user_id must be a UUID", domain.ErrInvalidArgument)
	}
	if _, err := uuid.Parse(in.PackageID); err != nil {
		return nil, fmt.Errorf("%w: package_id must be a UUID", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: payment_method is required", domain.ErrInvalidArgument)
	}
	if in.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidArgument)
	}

	pkg, err := u.packages.FindByID(ctx, nil, in.PackageID)
	if err != nil {
		return nil, err
	}
	user, err := u.users.FindByID(ctx, nil, in.UserID)
	if err != nil {
		return nil, err
	}
	amount := in.Amount
	if amount.IsZero() {
		amount = pkg.Price
	}

	reference := NewReference()
	ctx = logging.WithReference(ctx, reference)
	log := logging.With(ctx, u.logger)

	t, err := model.NewTransaction(uuid.NewString(), reference, user.ID, pkg.ID, amount, u.opts.Currency, in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	// The row must exist before the gateway can call back with this reference.
	if err := u.transactions.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	email := user.ContactEmail()
	req := adapter.CheckoutRequest{
		Reference:     reference,
		Amount:        amount,
		Currency:      u.opts.Currency,
		Description:   u.opts.Description,
		NotifyURL:     u.opts.NotifyURL,
		ReturnURL:     u.opts.ReturnURL,
		Channels:      u.opts.Channels,
		CustomerEmail: email,
		Metadata:      map[string]string{"user_id": user.ID, "package_id": pkg.ID},
	}

	gctx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
	defer cancel()
	res, err := u.gateway.Initialize(gctx, req)

	out := &InitiateResult{Reference: reference, Email: email}
	switch {
	case err != nil || res == nil:
		log.Error().Err(err).Msg("checkout initialization failed")
		out.GatewayResponse = map[string]any{"code": GatewayUnreachableCode, "message": unreachableMessage(err)}
	case !res.OK():
		log.Warn().Str("code", res.Code).Str("message", res.Message).Msg("gateway refused checkout")
		out.GatewayResponse = res.Raw
	default:
		log.Info().Str("amount", amount.String()).Msg("checkout opened")
		out.PaymentURL = res.PaymentURL
		out.GatewayResponse = res.Raw
	}
	if out.GatewayResponse == nil && res != nil {
		out.GatewayResponse = map[string]any{"code": res.Code, "message": res.Message, "description": res.Description}
	}
	return out, nil
}

func unreachableMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment gateway timed out"
	}
	return "payment gateway unreachable"
}
