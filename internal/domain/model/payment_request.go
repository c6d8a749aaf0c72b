package model

import (
	"time"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
)

// PaymentRequest tracks one initiated crypto invoice from creation until the
// gateway webhook settles or the invoice lifetime runs out.
type PaymentRequest struct {
	TrackID     string              `json:"track_id"`
	Email       string              `json:"email"`
	AmountMinor int64               `json:"amount_minor"`
	Currency    string              `json:"currency"`
	PayCurrency string              `json:"pay_currency"`
	Status      enums.PaymentStatus `json:"status"`
	PayLink     string              `json:"pay_link"`
	ExpiresAt   time.Time           `json:"expires_at"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}
