package dto

import "time"

type CardTopupRequest struct {
	Amount string `json:"amount"`
}

type CardTopupResponse struct {
	TxRef   string `json:"tx_ref"`
	PayLink string `json:"pay_link"`
}

type CardVerifyRequest struct {
	TransactionID string `json:"transaction_id"`
}

type CryptoTopupRequest struct {
	Amount      string `json:"amount"`
	PayCurrency string `json:"pay_currency"`
}

type CryptoTopupResponse struct {
	TrackID   string    `json:"track_id"`
	PayLink   string    `json:"pay_link"`
	QRCode    string    `json:"qr_code,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TopupResultResponse struct {
	TrackID     string `json:"track_id,omitempty"`
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount_minor"`
	Status      string `json:"status"`
	Applied     bool   `json:"applied"`
}

type PaymentResponse struct {
	TrackID     string     `json:"track_id"`
	AmountMinor int64      `json:"amount_minor"`
	Currency    string     `json:"currency"`
	PayCurrency string     `json:"pay_currency,omitempty"`
	Status      string     `json:"status"`
	PayLink     string     `json:"pay_link,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type PaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
}
