package tempnumber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Client wraps the SMS-activation provider: renting a number for a
// (service, country) pair, polling its activation for a received code, and
// fetching the provider's suggested price.

var (
	ErrActivationNotFound = errors.New("activation not found")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrProvider           = errors.New("sms provider error")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type OrderRequest struct {
	ServiceID     string `json:"service_id"`
	CountryID     string `json:"country_id"`
	MaxPrice      int    `json:"max_price"`
	QualityFactor int    `json:"quality_factor"`
}

type Activation struct {
	ActivationID     string  `json:"activation_id"`
	Phone            string  `json:"phone"`
	SMSStatus        string  `json:"sms_status"`
	SMSCode          *string `json:"sms_code"`
	SMSText          *string `json:"sms_text"`
	ActivationStatus string  `json:"activation_status"`
}

// Received reports whether the activation carries a complete SMS. Both code
// and text must be present before the rental can be settled.
func (a Activation) Received() bool {
	return a.SMSCode != nil && *a.SMSCode != "" && a.SMSText != nil && *a.SMSText != ""
}

type Price struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Suggested float64 `json:"suggested"`
}

func (c *Client) CreateActivation(ctx context.Context, in OrderRequest) (Activation, error) {
	if c.httpClient == nil {
		return Activation{}, fmt.Errorf("http client is nil")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return Activation{}, fmt.Errorf("marshal activation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/activation", bytes.NewReader(body))
	if err != nil {
		return Activation{}, fmt.Errorf("build activation request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Activation{}, fmt.Errorf("create activation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		return Activation{}, err
	}

	var activation Activation
	if err := json.NewDecoder(resp.Body).Decode(&activation); err != nil {
		return Activation{}, fmt.Errorf("decode activation response: %w", err)
	}
	if activation.ActivationID == "" {
		return Activation{}, fmt.Errorf("%w: empty activation id", ErrProvider)
	}

	return activation, nil
}

func (c *Client) GetActivation(ctx context.Context, activationID string) (Activation, error) {
	if c.httpClient == nil {
		return Activation{}, fmt.Errorf("http client is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/activation/"+activationID, nil)
	if err != nil {
		return Activation{}, fmt.Errorf("build activation status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Activation{}, fmt.Errorf("get activation status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		return Activation{}, err
	}

	var activation Activation
	if err := json.NewDecoder(resp.Body).Decode(&activation); err != nil {
		return Activation{}, fmt.Errorf("decode activation status: %w", err)
	}

	return activation, nil
}

func (c *Client) GetPrice(ctx context.Context, serviceID, countryID string) (Price, error) {
	if c.httpClient == nil {
		return Price{}, fmt.Errorf("http client is nil")
	}

	url := fmt.Sprintf("%s/activation/prices/services/%s/countries/%s", c.baseURL, serviceID, countryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Price{}, fmt.Errorf("build price request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Price{}, fmt.Errorf("get price: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := statusError(resp.StatusCode); err != nil {
		return Price{}, err
	}

	var payload struct {
		Price Price `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Price{}, fmt.Errorf("decode price response: %w", err)
	}

	return payload.Price, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)
}

func statusError(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrActivationNotFound
	case code == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case code >= 400:
		return fmt.Errorf("%w: status %d", ErrProvider, code)
	default:
		return nil
	}
}
