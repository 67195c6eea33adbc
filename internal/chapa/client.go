// Package chapa is a thin client for the Chapa payment gateway: one call to
// open a checkout session and one to ask for ground truth about a reference.
// Raw response bodies are always handed back so callers can retain them for
// audit, success or not.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const defaultTimeout = 100 * time.Second

type Client struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: defaultTimeout},
	}
}

type InitializeRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	TxRef       string `json:"tx_ref"`
	ReturnURL   string `json:"return_url,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// Initialize opens a transaction and returns the hosted checkout URL.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (string, []byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", nil, err
	}
	raw, status, err := c.do(ctx, http.MethodPost, "/v1/transaction/initialize", body)
	if err != nil {
		return "", raw, err
	}

	var out initializeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", raw, fmt.Errorf("chapa initialize: decode response: %w", err)
	}
	if status >= 300 {
		return "", raw, fmt.Errorf("chapa initialize: %d: %s", status, out.Message)
	}
	if out.Data.CheckoutURL == "" {
		return "", raw, fmt.Errorf("chapa initialize: response missing checkout_url")
	}
	return out.Data.CheckoutURL, raw, nil
}

// VerifyData is the gateway's ground truth about one transaction reference.
type VerifyData struct {
	Status   string
	Amount   decimal.Decimal
	Currency string
	TxnID    string
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       json.Number `json:"id"`
		Status   string      `json:"status"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	} `json:"data"`
}

// Verify asks Chapa for the state of a transaction reference. Callers must
// trust this, never the status a webhook or redirect claimed.
func (c *Client) Verify(ctx context.Context, txRef string) (*VerifyData, []byte, error) {
	raw, status, err := c.do(ctx, http.MethodGet, "/v1/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, raw, err
	}

	var out verifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, raw, fmt.Errorf("chapa verify: decode response: %w", err)
	}
	if status >= 300 {
		return nil, raw, fmt.Errorf("chapa verify: %d: %s", status, out.Message)
	}

	vd := &VerifyData{
		Status:   out.Data.Status,
		Currency: out.Data.Currency,
		TxnID:    out.Data.ID.String(),
	}
	if s := out.Data.Amount.String(); s != "" {
		amt, err := decimal.NewFromString(s)
		if err != nil {
			return nil, raw, fmt.Errorf("chapa verify: bad amount %q: %w", s, err)
		}
		vd.Amount = amt
	}
	return vd, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}
