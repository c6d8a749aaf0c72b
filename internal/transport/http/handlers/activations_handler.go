package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	"github.com/oyenolaphilipinc/smsify/internal/pkg/validate"
	actsvc "github.com/oyenolaphilipinc/smsify/internal/services/activations"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/dto"
	httperrors "github.com/oyenolaphilipinc/smsify/internal/transport/http/errors"
)

type ActivationsHandler struct {
	service *actsvc.Service
}

func NewActivationsHandler(service *actsvc.Service) *ActivationsHandler {
	return &ActivationsHandler{service: service}
}

func (h *ActivationsHandler) Order(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ACTIVATIONS_SERVICE_UNAVAILABLE", "activations service is unavailable")
		return
	}

	var req dto.OrderActivationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "BAD_JSON", "invalid request body")
		return
	}
	if !validate.Required(req.ServiceID) || !validate.Required(req.CountryID) {
		writeBadRequest(w, "VALIDATION_ERROR", "service_id and country_id are required")
		return
	}

	activation, err := h.service.Order(r.Context(), identity, actsvc.OrderInput{
		ServiceID:   req.ServiceID,
		CountryID:   req.CountryID,
		ServiceName: req.ServiceName,
		CountryName: req.CountryName,
	})
	if err != nil {
		var rateErr *actsvc.ErrRateLimited
		switch {
		case errors.Is(err, actsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "service_id and country_id are required")
		case errors.Is(err, actsvc.ErrInsufficientFunds):
			httperrors.Write(w, http.StatusPaymentRequired, httperrors.APIError{
				Code:    "INSUFFICIENT_FUNDS",
				Message: "balance does not cover the number price",
			})
		case errors.Is(err, actsvc.ErrQuoteUnavailable):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "QUOTE_UNAVAILABLE",
				Message: "price is not available for this service and country",
			})
		case errors.As(err, &rateErr):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many orders, slow down",
				RetryAfterSec: rateErr.RetryAfterSec,
			})
		case errors.Is(err, actsvc.ErrProviderBusy):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "PROVIDER_BUSY",
				Message: "number provider is busy, try again shortly",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to order a number")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, mapActivation(activation))
}

func (h *ActivationsHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ACTIVATIONS_SERVICE_UNAVAILABLE", "activations service is unavailable")
		return
	}

	activation, err := h.service.Status(r.Context(), identity, chi.URLParam(r, "activationID"))
	if err != nil {
		switch {
		case errors.Is(err, actsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid activation request")
		case errors.Is(err, actsvc.ErrActivationNotFound):
			writeNotFound(w, "ACTIVATION_NOT_FOUND", "activation not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load activation")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, mapActivation(activation))
}

func (h *ActivationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ACTIVATIONS_SERVICE_UNAVAILABLE", "activations service is unavailable")
		return
	}

	activations, err := h.service.List(r.Context(), identity, 100)
	if err != nil {
		switch {
		case errors.Is(err, actsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid activations request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load activations")
		}
		return
	}

	payload := dto.ActivationsResponse{Activations: make([]dto.ActivationResponse, 0, len(activations))}
	for _, activation := range activations {
		payload.Activations = append(payload.Activations, mapActivation(activation))
	}

	httperrors.Write(w, http.StatusOK, payload)
}

func (h *ActivationsHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ACTIVATIONS_SERVICE_UNAVAILABLE", "activations service is unavailable")
		return
	}

	items, err := h.service.ListHistory(r.Context(), identity, 100)
	if err != nil {
		switch {
		case errors.Is(err, actsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid history request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load history")
		}
		return
	}

	payload := dto.HistoryResponse{Items: make([]dto.HistoryItemResponse, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, dto.HistoryItemResponse{
			ID:          item.ID,
			PhoneNumber: item.PhoneNumber,
			SMSCode:     item.SMSCode,
			SMSText:     item.SMSText,
			ServiceName: item.ServiceName,
			CountryName: item.CountryName,
			PriceMinor:  item.PriceMinor,
			ReceivedAt:  item.ReceivedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, payload)
}

func mapActivation(activation model.Activation) dto.ActivationResponse {
	return dto.ActivationResponse{
		ID:          activation.ID,
		ServiceID:   activation.ServiceID,
		CountryID:   activation.CountryID,
		ServiceName: activation.ServiceName,
		CountryName: activation.CountryName,
		Phone:       activation.Phone,
		PriceMinor:  activation.PriceMinor,
		Price:       rules.FormatMinor(activation.PriceMinor),
		Status:      string(activation.Status),
		SMSCode:     activation.SMSCode,
		SMSText:     activation.SMSText,
		CreatedAt:   activation.CreatedAt,
	}
}
