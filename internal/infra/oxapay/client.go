package oxapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Client creates hosted crypto invoices. Settlement arrives out of band via
// the signed webhook, not through this client.

const resultOK = 100

var ErrInvoiceRejected = errors.New("invoice rejected")

type Client struct {
	httpClient  *http.Client
	baseURL     string
	merchantKey string
}

func NewClient(httpClient *http.Client, baseURL, merchantKey string) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		merchantKey: merchantKey,
	}
}

type InvoiceRequest struct {
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	PayCurrency string  `json:"payCurrency"`
	CallbackURL string  `json:"callbackUrl"`
	ReturnURL   string  `json:"returnUrl"`
	Email       string  `json:"email"`
	Description string  `json:"description"`
	OrderID     string  `json:"orderId"`
	LifeTime    int     `json:"lifeTime"`
}

type Invoice struct {
	Result    int    `json:"result"`
	Message   string `json:"message"`
	TrackID   string `json:"trackId"`
	PayLink   string `json:"payLink"`
	QRCode    string `json:"QRCode"`
	ExpiredAt string `json:"expiredAt"`
}

func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (Invoice, error) {
	if c.httpClient == nil {
		return Invoice{}, fmt.Errorf("http client is nil")
	}

	in.Merchant = c.merchantKey
	body, err := json.Marshal(in)
	if err != nil {
		return Invoice{}, fmt.Errorf("marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/merchants/request", bytes.NewReader(body))
	if err != nil {
		return Invoice{}, fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Invoice{}, fmt.Errorf("%w: invoice status %d", ErrInvoiceRejected, resp.StatusCode)
	}

	var invoice Invoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return Invoice{}, fmt.Errorf("decode invoice response: %w", err)
	}
	if invoice.Result != resultOK || invoice.TrackID == "" {
		return Invoice{}, fmt.Errorf("%w: %s", ErrInvoiceRejected, invoice.Message)
	}

	return invoice, nil
}
