package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RazorpayGateway - реализация Gateway поверх HTTP API шлюза.
// Конфигурируется ключами мерчанта из config/payments.
type RazorpayGateway struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	client    *http.Client
}

func NewRazorpayGateway(baseURL, keyID, keySecret string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1"
	}
	return &RazorpayGateway{
		BaseURL:   baseURL,
		KeyID:     keyID,
		KeySecret: keySecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Authorize(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (*Authorization, error) {
	body := map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"payment_capture": 0, // двухфазный платеж: capture отдельным вызовом
		"notes":           metadata,
	}

	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := g.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}

	return &Authorization{
		Ref:          resp.ID,
		ClientSecret: g.KeyID + ":" + resp.ID,
		State:        AuthorizationState(resp.Status),
		AmountPaise:  resp.Amount,
	}, nil
}

func (g *RazorpayGateway) Capture(ctx context.Context, ref string, amountPaise int64) (*CaptureResult, error) {
	body := map[string]interface{}{
		"amount": amountPaise,
	}

	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := g.do(ctx, http.MethodPost, fmt.Sprintf("/payments/%s/capture", ref), body, &resp); err != nil {
		return nil, err
	}

	return &CaptureResult{
		Ref:           resp.ID,
		State:         AuthorizationState(resp.Status),
		CapturedPaise: resp.Amount,
	}, nil
}

func (g *RazorpayGateway) Retrieve(ctx context.Context, ref string) (*Authorization, error) {
	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
		Status string `json:"status"`
	}
	if err := g.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s", ref), nil, &resp); err != nil {
		return nil, err
	}

	return &Authorization{
		Ref:         resp.ID,
		State:       AuthorizationState(resp.Status),
		AmountPaise: resp.Amount,
	}, nil
}

func (g *RazorpayGateway) Transfer(ctx context.Context, amountPaise int64, destination string, metadata map[string]string) (*TransferResult, error) {
	body := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"account":  destination,
		"notes":    metadata,
	}

	var resp struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
	}
	if err := g.do(ctx, http.MethodPost, "/transfers", body, &resp); err != nil {
		return nil, err
	}

	return &TransferResult{
		Ref:         resp.ID,
		AmountPaise: resp.Amount,
	}, nil
}

// do выполняет запрос к шлюзу с basic-auth ключами мерчанта
func (g *RazorpayGateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.KeyID, g.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("payment gateway error %d: %s %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
