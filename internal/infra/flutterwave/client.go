package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Client talks to the card/mobile-money gateway. Amounts cross this boundary
// as decimal strings; conversion to minor units happens in the caller.

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGatewayRejected     = errors.New("gateway rejected request")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

func NewClient(httpClient *http.Client, baseURL, secretKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

type Customer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Name        string `json:"name,omitempty"`
}

type PaymentRequest struct {
	TxRef       string   `json:"tx_ref"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	RedirectURL string   `json:"redirect_url"`
	Customer    Customer `json:"customer"`
}

type PaymentLink struct {
	Link string
}

type Transaction struct {
	ID       int64       `json:"id"`
	TxRef    string      `json:"tx_ref"`
	Amount   json.Number `json:"amount"`
	Currency string      `json:"currency"`
	Status   string      `json:"status"`
	Customer Customer    `json:"customer"`
}

// CreatePayment requests a hosted checkout link for the given charge.
func (c *Client) CreatePayment(ctx context.Context, in PaymentRequest) (PaymentLink, error) {
	if c.httpClient == nil {
		return PaymentLink{}, fmt.Errorf("http client is nil")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return PaymentLink{}, fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return PaymentLink{}, fmt.Errorf("build payment request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PaymentLink{}, fmt.Errorf("create payment: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return PaymentLink{}, fmt.Errorf("%w: create payment status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PaymentLink{}, fmt.Errorf("decode payment response: %w", err)
	}
	if payload.Status != "success" || payload.Data.Link == "" {
		return PaymentLink{}, fmt.Errorf("%w: %s", ErrGatewayRejected, payload.Message)
	}

	return PaymentLink{Link: payload.Data.Link}, nil
}

// VerifyTransaction fetches the settled state of a transaction. Only the
// returned gateway-confirmed amount may be credited; client-supplied amounts
// are never trusted.
func (c *Client) VerifyTransaction(ctx context.Context, transactionID string) (Transaction, error) {
	if c.httpClient == nil {
		return Transaction{}, fmt.Errorf("http client is nil")
	}

	url := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("build verify request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("verify transaction: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return Transaction{}, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Transaction{}, fmt.Errorf("%w: verify status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var payload struct {
		Status  string      `json:"status"`
		Message string      `json:"message"`
		Data    Transaction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Transaction{}, fmt.Errorf("decode verify response: %w", err)
	}
	if payload.Status != "success" {
		return Transaction{}, fmt.Errorf("%w: %s", ErrGatewayRejected, payload.Message)
	}

	return payload.Data, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
}
