package model

import (
	"time"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
)

// Activation is a rented virtual number waiting for (or holding) its SMS
// code. PriceMinor is the marked-up quote captured at order time; Charged
// reports whether that price has been debited from the owner's balance.
type Activation struct {
	ID          string                 `json:"id"`
	Email       string                 `json:"email"`
	UID         string                 `json:"uid"`
	ServiceID   string                 `json:"service_id"`
	CountryID   string                 `json:"country_id"`
	ServiceName string                 `json:"service_name"`
	CountryName string                 `json:"country_name"`
	Phone       string                 `json:"phone"`
	PriceMinor  int64                  `json:"price_minor"`
	Status      enums.ActivationStatus `json:"status"`
	SMSCode     *string                `json:"sms_code,omitempty"`
	SMSText     *string                `json:"sms_text,omitempty"`
	Charged     bool                   `json:"charged"`
	Attempts    int                    `json:"attempts"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
