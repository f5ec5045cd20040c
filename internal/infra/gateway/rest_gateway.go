package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"agrolease-billing/internal/config"
	"agrolease-billing/internal/domain/ports/adapter"
)

// RestGateway implements adapter.PaymentGateway against the collector's
// HTTP API.
type RestGateway struct {
	merchantID  string
	callbackURL string
	baseURL     string
	client      *http.Client
}

var _ adapter.PaymentGateway = (*RestGateway)(nil)

func NewRestGateway(cfg *config.GatewayConfig) *RestGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch cfg.Sandbox {
		case true:
			baseURL = "https://sandbox.collect.dz/api/v1"
		case false:
			baseURL = "https://collect.dz/api/v1"
		}
	}

	return &RestGateway{
		merchantID:  cfg.MerchantID,
		callbackURL: cfg.CallbackURL,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *RestGateway) Name() string { return "collect" }

type requestResponse struct {
	Data struct {
		Code      int    `json:"code"`
		Message   string `json:"message"`
		Authority string `json:"authority"`
		PayURL    string `json:"pay_url"`
	} `json:"data"`
	Errors []interface{} `json:"errors"`
}

type verifyResponse struct {
	Data struct {
		Code          int    `json:"code"`
		TransactionID string `json:"transaction_id"`
		Amount        int64  `json:"amount"`
		Fees          int64  `json:"fees"`
		Method        string `json:"method"`
	} `json:"data"`
	Errors []interface{} `json:"errors"`
}

func (g *RestGateway) RequestPayment(ctx context.Context, amount int64, description, callbackURL, reference string) (authority string, payURL string, err error) {
	if callbackURL == "" {
		callbackURL = g.callbackURL
	}
	requestData := map[string]interface{}{
		"merchant_id":  g.merchantID,
		"amount":       amount,
		"callback_url": callbackURL,
		"description":  description,
		"reference":    reference,
	}

	var response requestResponse
	if err := g.post(ctx, "/request", requestData, &response); err != nil {
		return "", "", err
	}

	if response.Data.Code != 100 {
		return "", "", fmt.Errorf("gateway error: code %d, message: %s", response.Data.Code, response.Data.Message)
	}
	if len(response.Errors) > 0 {
		errorBytes, _ := json.Marshal(response.Errors)
		return "", "", fmt.Errorf("gateway errors: %s", string(errorBytes))
	}

	return response.Data.Authority, response.Data.PayURL, nil
}

func (g *RestGateway) VerifyPayment(ctx context.Context, authority string, expectedAmount int64) (adapter.VerifyResult, error) {
	requestData := map[string]interface{}{
		"merchant_id": g.merchantID,
		"amount":      expectedAmount,
		"authority":   authority,
	}

	var response verifyResponse
	if err := g.post(ctx, "/verify", requestData, &response); err != nil {
		return adapter.VerifyResult{}, err
	}

	// 100 is a fresh verification, 101 an already-verified transaction.
	if response.Data.Code != 100 && response.Data.Code != 101 {
		return adapter.VerifyResult{}, fmt.Errorf("gateway error: code %d", response.Data.Code)
	}
	if len(response.Errors) > 0 {
		errorBytes, _ := json.Marshal(response.Errors)
		return adapter.VerifyResult{}, fmt.Errorf("gateway errors: %s", string(errorBytes))
	}

	return adapter.VerifyResult{
		TxID:   response.Data.TransactionID,
		Amount: response.Data.Amount,
		Fees:   response.Data.Fees,
		Method: response.Data.Method,
	}, nil
}

func (g *RestGateway) post(ctx context.Context, path string, payload map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}
	return nil
}
