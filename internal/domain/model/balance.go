package model

import "time"

// Customer is the identity snapshot stored alongside a balance. Email is the
// ledger key; UID and Name come from the identity provider token at the time
// of the last write.
type Customer struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
	Name  string `json:"name"`
}

// Balance is the per-user stored balance. AmountMinor is in cents.
type Balance struct {
	ID          int64     `json:"id"`
	Customer    Customer  `json:"customer"`
	AmountMinor int64     `json:"amount_minor"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LedgerEntry is one applied credit or debit. The (Provider, ExternalID)
// pair is unique; replays of the same settlement apply at most once.
type LedgerEntry struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"external_id"`
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}
