package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/shopspring/decimal"

	"hotspot-billing/internal/domain"
	"hotspot-billing/internal/infra/logging"
	"hotspot-billing/internal/infra/metrics"
	"hotspot-billing/internal/usecase"
)

type initResponse struct {
	TransactionID   string         `json:"transaction_id"`
	PaymentURL      string         `json:"payment_url,omitempty"`
	GatewayResponse map[string]any `json:"gateway_response"`
	Email           string         `json:"email"`
}

// outcomeResponse is shared by the webhook and manual activation.
type outcomeResponse struct {
	Status  string `json:"status"`
	Updated string `json:"updated,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Voucher string `json:"voucher,omitempty"`
}

type syncResponse struct {
	PackageID   string `json:"package_id"`
	ProfileName string `json:"profile_name"`
	Synced      bool   `json:"synced"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, fmt.Errorf("%w: malformed form", domain.ErrInvalidArgument))
		return
	}

	var (
		userID, packageID openapi_types.UUID
		amountRaw, method string
	)
	for _, p := range []struct {
		name     string
		required bool
		dest     any
	}{
		{"user_id", true, &userID},
		{"package_id", true, &packageID},
		{"amount", false, &amountRaw},
		{"payment_method", true, &method},
	} {
		if err := runtime.BindQueryParameter("form", true, p.required, p.name, r.Form, p.dest); err != nil {
			writeError(w, fmt.Errorf("%w: %s: %v", domain.ErrInvalidArgument, p.name, err))
			return
		}
	}

	amount := decimal.Zero
	if strings.TrimSpace(amountRaw) != "" {
		var err error
		if amount, err = decimal.NewFromString(amountRaw); err != nil {
			writeError(w, fmt.Errorf("%w: amount must be a number", domain.ErrInvalidArgument))
			return
		}
	}

	res, err := s.d.Payments.Initiate(r.Context(), usecase.InitiateInput{
		UserID:        userID.String(),
		PackageID:     packageID.String(),
		Amount:        amount,
		PaymentMethod: method,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		TransactionID:   res.Reference,
		PaymentURL:      res.PaymentURL,
		GatewayResponse: res.GatewayResponse,
		Email:           res.Email,
	})
}

// handleNotifyProbe answers the gateway's URL reachability check.
func (s *Server) handleNotifyProbe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, outcomeResponse{Status: "OK"})
}

// handleNotify answers 200 for everything except failures the gateway
// should retry: verification errors upstream and provisioning failures.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)
	if err := r.ParseForm(); err != nil {
		s.notifyIgnored(w, "malformed notification")
		return
	}
	reference := strings.TrimSpace(r.Form.Get("cpm_trans_id"))
	if s.d.Verifier != nil && !s.d.Verifier.VerifyNotification(r.Form, r.Header.Get("x-token")) {
		log.Warn().Str("reference", reference).Msg("notification failed authentication")
		s.notifyIgnored(w, "invalid notification signature")
		return
	}

	res, err := s.d.Reconcile.HandleNotification(r.Context(), reference)
	switch {
	case err != nil && res != nil:
		metrics.IncWebhookOutcome("provisioning_failed")
		writeJSON(w, http.StatusInternalServerError, outcomeResponse{
			Status:  "ERROR",
			Updated: string(res.Status),
			Reason:  "voucher provisioning failed",
		})
		return
	case err != nil:
		metrics.IncWebhookOutcome("error")
		log.Error().Err(err).Str("reference", reference).Msg("notification reconciliation failed")
		writeError(w, err)
		return
	}
	metrics.IncWebhookOutcome(string(res.Outcome))
	writeJSON(w, http.StatusOK, toOutcome(res, false))
}

func (s *Server) notifyIgnored(w http.ResponseWriter, reason string) {
	metrics.IncWebhookOutcome(string(usecase.OutcomeIgnored))
	writeJSON(w, http.StatusOK, outcomeResponse{Status: string(usecase.OutcomeIgnored), Reason: reason})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var reference string
	err := runtime.BindStyledParameterWithOptions("simple", "transaction_id", chi.URLParam(r, "transaction_id"), &reference,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, fmt.Errorf("%w: transaction_id: %v", domain.ErrInvalidArgument, err))
		return
	}

	res, err := s.d.Activate.Activate(r.Context(), reference)
	if err != nil {
		if res != nil {
			writeJSON(w, http.StatusInternalServerError, outcomeResponse{
				Status:  "ERROR",
				Updated: string(res.Status),
				Reason:  err.Error(),
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcome(res, true))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var packageID openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "package_id", chi.URLParam(r, "package_id"), &packageID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, fmt.Errorf("%w: package_id: %v", domain.ErrInvalidArgument, err))
		return
	}

	pkg, err := s.d.Packages.Sync(r.Context(), packageID.String())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, syncResponse{PackageID: pkg.ID, ProfileName: pkg.ProfileName, Synced: pkg.IsSynced})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.d.Health))
	status := http.StatusOK
	for name, p := range s.d.Health {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	body := map[string]any{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSON(w, status, body)
}

// toOutcome renders a reconciliation result. Voucher codes are only shown to
// operators, never echoed to the gateway.
func toOutcome(res *usecase.ReconciliationResult, withVoucher bool) outcomeResponse {
	out := outcomeResponse{Status: string(res.Outcome)}
	if res.Outcome == usecase.OutcomeIgnored {
		out.Reason = res.Reason
		return out
	}
	out.Updated = string(res.Status)
	if withVoucher && res.Voucher != nil {
		out.Voucher = res.Voucher.Username
	}
	return out
}
