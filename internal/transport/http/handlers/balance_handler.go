package handlers

import (
	"errors"
	"net/http"

	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/dto"
	httperrors "github.com/oyenolaphilipinc/smsify/internal/transport/http/errors"
)

type BalanceHandler struct {
	ledger *ledgersvc.Service
}

func NewBalanceHandler(ledger *ledgersvc.Service) *BalanceHandler {
	return &BalanceHandler{ledger: ledger}
}

func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	balance, err := h.ledger.Get(r.Context(), identity.Email)
	if err != nil {
		switch {
		case errors.Is(err, ledgersvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid balance request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load balance")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BalanceResponse{
		Email:       balance.Customer.Email,
		AmountMinor: balance.AmountMinor,
		Amount:      rules.FormatMinor(balance.AmountMinor),
		Status:      balance.Status,
	})
}

func (h *BalanceHandler) Entries(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	entries, err := h.ledger.ListEntries(r.Context(), identity.Email, 100)
	if err != nil {
		switch {
		case errors.Is(err, ledgersvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid ledger request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load ledger entries")
		}
		return
	}

	payload := dto.LedgerEntriesResponse{Entries: make([]dto.LedgerEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		payload.Entries = append(payload.Entries, dto.LedgerEntryResponse{
			ID:          entry.ID,
			Provider:    entry.Provider,
			ExternalID:  entry.ExternalID,
			AmountMinor: entry.AmountMinor,
			Reason:      entry.Reason,
			CreatedAt:   entry.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}
