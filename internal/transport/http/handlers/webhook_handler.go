package handlers

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	paysvc "github.com/oyenolaphilipinc/smsify/internal/services/payments"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/dto"
	httperrors "github.com/oyenolaphilipinc/smsify/internal/transport/http/errors"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	payments *paysvc.Service
	secret   []byte
	logger   *zap.Logger
}

func NewWebhookHandler(payments *paysvc.Service, callbackSecret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookHandler{
		payments: payments,
		secret:   []byte(callbackSecret),
		logger:   logger,
	}
}

// Crypto receives payment-provider callbacks. The signature is an
// HMAC-SHA512 of the raw body; a missing or wrong signature is rejected
// before the payload is even parsed.
func (h *WebhookHandler) Crypto(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeBadRequest(w, "BAD_BODY", "failed to read request body")
		return
	}

	if !h.validSignature(body, r.Header.Get("hmac")) {
		h.logger.Warn("webhook signature mismatch", zap.String("remote", r.RemoteAddr))
		writeUnauthorized(w, "INVALID_SIGNATURE", "signature verification failed")
		return
	}

	var payload struct {
		TrackID trackID `json:"trackId"`
		Status  string  `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		writeBadRequest(w, "BAD_JSON", "invalid webhook payload")
		return
	}

	result, err := h.payments.ConfirmCrypto(r.Context(), paysvc.CryptoEvent{
		TrackID: string(payload.TrackID),
		Status:  payload.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, paysvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid webhook payload")
		case errors.Is(err, paysvc.ErrPaymentNotFound):
			writeNotFound(w, "PAYMENT_NOT_FOUND", "unknown track id")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to process webhook")
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

// trackID tolerates both shapes the gateway sends: a JSON string and a bare
// number.
type trackID string

func (t *trackID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = trackID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*t = trackID(n.String())
	return nil
}

func (h *WebhookHandler) validSignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
