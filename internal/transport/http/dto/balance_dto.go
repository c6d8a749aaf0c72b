package dto

import "time"

type BalanceResponse struct {
	Email       string `json:"email"`
	AmountMinor int64  `json:"amount_minor"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
}

type LedgerEntryResponse struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"external_id"`
	AmountMinor int64     `json:"amount_minor"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

type LedgerEntriesResponse struct {
	Entries []LedgerEntryResponse `json:"entries"`
}
