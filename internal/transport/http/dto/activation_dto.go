package dto

import "time"

type OrderActivationRequest struct {
	ServiceID   string `json:"service_id"`
	CountryID   string `json:"country_id"`
	ServiceName string `json:"service_name,omitempty"`
	CountryName string `json:"country_name,omitempty"`
}

type ActivationResponse struct {
	ID          string    `json:"id"`
	ServiceID   string    `json:"service_id"`
	CountryID   string    `json:"country_id"`
	ServiceName string    `json:"service_name,omitempty"`
	CountryName string    `json:"country_name,omitempty"`
	Phone       string    `json:"phone"`
	PriceMinor  int64     `json:"price_minor"`
	Price       string    `json:"price"`
	Status      string    `json:"status"`
	SMSCode     *string   `json:"sms_code,omitempty"`
	SMSText     *string   `json:"sms_text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ActivationsResponse struct {
	Activations []ActivationResponse `json:"activations"`
}

type HistoryItemResponse struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phone_number"`
	SMSCode     string    `json:"sms_code"`
	SMSText     string    `json:"sms_text"`
	ServiceName string    `json:"service_name"`
	CountryName string    `json:"country_name"`
	PriceMinor  int64     `json:"price_minor"`
	ReceivedAt  time.Time `json:"received_at"`
}

type HistoryResponse struct {
	Items []HistoryItemResponse `json:"items"`
}

type PriceQuoteResponse struct {
	ServiceID  string `json:"service_id"`
	CountryID  string `json:"country_id"`
	PriceMinor int64  `json:"price_minor"`
	Price      string `json:"price"`
}
