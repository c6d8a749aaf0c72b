package handlers

import (
	"errors"
	"net/http"

	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	pricingsvc "github.com/oyenolaphilipinc/smsify/internal/services/pricing"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/dto"
	httperrors "github.com/oyenolaphilipinc/smsify/internal/transport/http/errors"
)

type PricesHandler struct {
	pricing *pricingsvc.Service
}

func NewPricesHandler(pricing *pricingsvc.Service) *PricesHandler {
	return &PricesHandler{pricing: pricing}
}

// Quote returns the customer price for one service and country pair.
func (h *PricesHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.pricing == nil {
		writeInternal(w, "PRICING_SERVICE_UNAVAILABLE", "pricing service is unavailable")
		return
	}

	serviceID := r.URL.Query().Get("service_id")
	countryID := r.URL.Query().Get("country_id")

	priceMinor, err := h.pricing.Quote(r.Context(), serviceID, countryID)
	if err != nil {
		switch {
		case errors.Is(err, pricingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "service_id and country_id are required")
		case errors.Is(err, pricingsvc.ErrQuoteUnavailable):
			httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
				Code:    "QUOTE_UNAVAILABLE",
				Message: "price is not available for this service and country",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load price")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PriceQuoteResponse{
		ServiceID:  serviceID,
		CountryID:  countryID,
		PriceMinor: priceMinor,
		Price:      rules.FormatMinor(priceMinor),
	})
}
