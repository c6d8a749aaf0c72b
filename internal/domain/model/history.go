package model

import "time"

// HistoryItem is the persisted record of one completed rental, written once
// per successful SMS receipt.
type HistoryItem struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	SMSCode     string    `json:"sms_code"`
	SMSText     string    `json:"sms_text"`
	ServiceName string    `json:"service_name"`
	CountryName string    `json:"country_name"`
	PriceMinor  int64     `json:"price_minor"`
	ReceivedAt  time.Time `json:"received_at"`
}
