package handlers

import (
	"errors"
	"net/http"

	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	"github.com/oyenolaphilipinc/smsify/internal/pkg/validate"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	paysvc "github.com/oyenolaphilipinc/smsify/internal/services/payments"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/dto"
	httperrors "github.com/oyenolaphilipinc/smsify/internal/transport/http/errors"
)

type TopupHandler struct {
	payments *paysvc.Service
}

func NewTopupHandler(payments *paysvc.Service) *TopupHandler {
	return &TopupHandler{payments: payments}
}

// InitCard opens a card checkout session for the requested top-up amount.
func (h *TopupHandler) InitCard(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.CardTopupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "BAD_JSON", "invalid request body")
		return
	}

	amountMinor, err := rules.ParseDecimalMinor(req.Amount)
	if err != nil {
		writeBadRequest(w, "INVALID_AMOUNT", "amount must be a positive decimal with at most two fraction digits")
		return
	}

	result, err := h.payments.InitializeCard(r.Context(), identity, amountMinor)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid top-up request")
		case errors.Is(err, paysvc.ErrPaymentRejected):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "GATEWAY_REJECTED",
				Message: "payment gateway rejected the request",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to initialize card payment")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CardTopupResponse{
		TxRef:   result.TxRef,
		PayLink: result.PayLink,
	})
}

// VerifyCard settles a card transaction after the customer returns from
// checkout.
func (h *TopupHandler) VerifyCard(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.CardVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "BAD_JSON", "invalid request body")
		return
	}
	if !validate.Required(req.TransactionID) {
		writeBadRequest(w, "VALIDATION_ERROR", "transaction_id is required")
		return
	}

	result, err := h.payments.VerifyCard(r.Context(), identity, req.TransactionID)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid verification request")
		case errors.Is(err, paysvc.ErrPaymentNotFound):
			writeNotFound(w, "PAYMENT_NOT_FOUND", "transaction not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to verify card payment")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TopupResultResponse{
		TrackID:     result.TrackID,
		Email:       result.Email,
		AmountMinor: result.AmountMinor,
		Status:      string(result.Status),
		Applied:     result.Applied,
	})
}

// InitCrypto opens a crypto invoice for the requested top-up amount.
func (h *TopupHandler) InitCrypto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.CryptoTopupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "BAD_JSON", "invalid request body")
		return
	}

	amountMinor, err := rules.ParseDecimalMinor(req.Amount)
	if err != nil {
		writeBadRequest(w, "INVALID_AMOUNT", "amount must be a positive decimal with at most two fraction digits")
		return
	}

	result, err := h.payments.CreateInvoice(r.Context(), identity, amountMinor, req.PayCurrency)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid top-up request")
		case errors.Is(err, paysvc.ErrPaymentRejected):
			httperrors.Write(w, http.StatusBadGateway, httperrors.APIError{
				Code:    "GATEWAY_REJECTED",
				Message: "payment gateway rejected the request",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to create crypto invoice")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CryptoTopupResponse{
		TrackID:   result.TrackID,
		PayLink:   result.PayLink,
		QRCode:    result.QRCode,
		ExpiresAt: result.ExpiresAt,
	})
}

// List returns the customer's top-up requests, newest first.
func (h *TopupHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	requests, err := h.payments.List(r.Context(), identity.Email, 100)
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid payments request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load payments")
		}
		return
	}

	payload := dto.PaymentsResponse{Payments: make([]dto.PaymentResponse, 0, len(requests))}
	for _, req := range requests {
		payload.Payments = append(payload.Payments, dto.PaymentResponse{
			TrackID:     req.TrackID,
			AmountMinor: req.AmountMinor,
			Currency:    req.Currency,
			PayCurrency: req.PayCurrency,
			Status:      string(req.Status),
			PayLink:     req.PayLink,
			CreatedAt:   req.CreatedAt,
			CompletedAt: req.CompletedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}
