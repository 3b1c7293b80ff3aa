package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hotspot-billing/internal/config"
	"hotspot-billing/internal/domain/ports/adapter"
	"hotspot-billing/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*CinetPayGateway)(nil)

const (
	cinetPayCodeCreated = "201"
	cinetPayCodeSuccess = "00"
	maxResponseBytes    = 1 << 20
)

// CinetPayGateway implements adapter.PaymentGateway against the CinetPay v2 checkout API.
type CinetPayGateway struct {
	apiKey   string
	siteID   string
	secret   string
	baseURL  string
	currency string
	client   *http.Client
}

func NewCinetPayGateway(cfg config.CinetPayConfig) (*CinetPayGateway, error) {
	if cfg.APIKey == "" || cfg.SiteID == "" {
		return nil, errors.New("cinetpay api key or site id empty")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid cinetpay base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CinetPayGateway{
		apiKey:   cfg.APIKey,
		siteID:   cfg.SiteID,
		secret:   cfg.SecretKey,
		baseURL:  base,
		currency: cfg.Currency,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (g *CinetPayGateway) Name() string { return "cinetpay" }

// SiteID is the merchant site the webhook must carry.
func (g *CinetPayGateway) SiteID() string { return g.siteID }

type cinetPayInitResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
	Data        *struct {
		PaymentToken string `json:"payment_token"`
		PaymentURL   string `json:"payment_url"`
	} `json:"data"`
}

// Initialize calls /v2/payment. Business refusals come back as a result with
// the gateway's code and message; err is only set for transport or decoding failures.
func (g *CinetPayGateway) Initialize(ctx context.Context, req adapter.CheckoutRequest) (*adapter.CheckoutResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	payload := map[string]any{
		"apikey":         g.apiKey,
		"site_id":        g.siteID,
		"transaction_id": req.Reference,
		"amount":         req.Amount.IntPart(), // CinetPay only accepts whole units
		"currency":       currency,
		"description":    req.Description,
		"notify_url":     req.NotifyURL,
		"return_url":     req.ReturnURL,
		"channels":       req.Channels,
	}
	if req.CustomerEmail != "" {
		payload["customer_email"] = req.CustomerEmail
	}
	if len(req.Metadata) > 0 {
		meta, _ := json.Marshal(req.Metadata)
		payload["metadata"] = string(meta)
	}

	start := time.Now()
	raw, err := g.post(ctx, "/v2/payment", payload)
	metrics.ObserveGatewayCall(g.Name(), "initialize", err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var out cinetPayInitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cinetpay initialize: decode response: %w", err)
	}
	res := &adapter.CheckoutResult{
		Code:        out.Code,
		Message:     out.Message,
		Description: out.Description,
	}
	_ = json.Unmarshal(raw, &res.Raw)
	if out.Code == cinetPayCodeCreated && out.Data != nil {
		res.PaymentToken = out.Data.PaymentToken
		res.PaymentURL = out.Data.PaymentURL
	}
	return res, nil
}

type cinetPayCheckResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"` // object, or [] when the gateway has nothing
}

type cinetPayCheckData struct {
	Status        string      `json:"status"`
	PaymentMethod string      `json:"payment_method"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	OperatorID    string      `json:"operator_id"`
}

// Verify calls /v2/payment/check. A response without a status yields a
// Verification with nil Data.
func (g *CinetPayGateway) Verify(ctx context.Context, reference string) (*adapter.Verification, error) {
	payload := map[string]any{
		"apikey":         g.apiKey,
		"site_id":        g.siteID,
		"transaction_id": reference,
	}

	start := time.Now()
	raw, err := g.post(ctx, "/v2/payment/check", payload)
	metrics.ObserveGatewayCall(g.Name(), "verify", err == nil, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	var out cinetPayCheckResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("cinetpay verify: decode response: %w", err)
	}
	v := &adapter.Verification{Code: out.Code, Message: out.Message}
	var data cinetPayCheckData
	if len(out.Data) > 0 && out.Data[0] == '{' && json.Unmarshal(out.Data, &data) == nil && strings.TrimSpace(data.Status) != "" {
		v.Data = &adapter.VerificationData{
			Status:        data.Status,
			PaymentMethod: data.PaymentMethod,
			TransactionID: reference,
			Amount:        data.Amount.String(),
			Currency:      data.Currency,
		}
	}
	return v, nil
}

// post sends a JSON body and returns the raw response. CinetPay reports
// business errors with 4xx statuses and a JSON body, so only 5xx and
// non-JSON answers are treated as transport failures.
func (g *CinetPayGateway) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cinetpay %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("cinetpay %s: read body: %w", path, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("cinetpay %s: http %d", path, resp.StatusCode)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("cinetpay %s: non-json response (http %d)", path, resp.StatusCode)
	}
	return raw, nil
}
