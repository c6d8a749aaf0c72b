package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
	paysvc "github.com/oyenolaphilipinc/smsify/internal/services/payments"
)

const webhookSecret = "callback-secret"

type memRequestStore struct {
	requests map[string]model.PaymentRequest
}

func (s *memRequestStore) Create(_ context.Context, req model.PaymentRequest) (model.PaymentRequest, error) {
	s.requests[req.TrackID] = req
	return req, nil
}

func (s *memRequestStore) FindByTrackID(_ context.Context, trackID string) (model.PaymentRequest, error) {
	req, ok := s.requests[trackID]
	if !ok {
		return model.PaymentRequest{}, pgrepo.ErrPaymentRequestNotFound
	}
	return req, nil
}

func (s *memRequestStore) UpdateStatus(_ context.Context, trackID string, status enums.PaymentStatus) (model.PaymentRequest, error) {
	req, ok := s.requests[trackID]
	if !ok {
		return model.PaymentRequest{}, pgrepo.ErrPaymentRequestNotFound
	}
	req.Status = status
	s.requests[trackID] = req
	return req, nil
}

func (s *memRequestStore) ListByEmail(_ context.Context, _ string, _ int) ([]model.PaymentRequest, error) {
	return nil, nil
}

type memLedger struct {
	balances map[string]int64
	seen     map[string]bool
}

func (s *memLedger) Credit(_ context.Context, in ledgersvc.CreditInput) (model.Balance, bool, error) {
	key := string(in.Provider) + ":" + in.ExternalID
	if s.seen[key] {
		return model.Balance{AmountMinor: s.balances[in.Email]}, false, nil
	}
	s.seen[key] = true
	s.balances[in.Email] += in.AmountMinor
	return model.Balance{AmountMinor: s.balances[in.Email]}, true, nil
}

func newWebhookFixture() (*WebhookHandler, *memRequestStore, *memLedger) {
	store := &memRequestStore{requests: map[string]model.PaymentRequest{}}
	ledger := &memLedger{balances: map[string]int64{}, seen: map[string]bool{}}
	payments := paysvc.NewService(paysvc.Dependencies{
		Requests: store,
		Ledger:   ledger,
		Config:   paysvc.Config{InvoiceLifetime: 5 * time.Minute},
	})
	return NewWebhookHandler(payments, webhookSecret, nil), store, ledger
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, handler *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/crypto", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("hmac", signature)
	}
	rec := httptest.NewRecorder()
	handler.Crypto(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	handler, store, ledger := newWebhookFixture()
	store.requests["track-1"] = model.PaymentRequest{
		TrackID: "track-1", Email: "user@example.com", AmountMinor: 1000, Status: enums.PaymentStatusWaiting,
	}

	body := []byte(`{"trackId":"track-1","status":"paid"}`)

	rec := postWebhook(t, handler, body, "deadbeef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = postWebhook(t, handler, body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing signature, got %d", rec.Code)
	}

	if ledger.balances["user@example.com"] != 0 {
		t.Fatal("rejected webhook must not credit the balance")
	}
	if store.requests["track-1"].Status != enums.PaymentStatusWaiting {
		t.Fatal("rejected webhook must not change the request status")
	}
}

func TestWebhookPaidCreditsBalance(t *testing.T) {
	handler, store, ledger := newWebhookFixture()
	store.requests["track-1"] = model.PaymentRequest{
		TrackID: "track-1", Email: "user@example.com", AmountMinor: 1000, Status: enums.PaymentStatusWaiting,
	}
	store.requests["track-2"] = model.PaymentRequest{
		TrackID: "track-2", Email: "user@example.com", AmountMinor: 2500, Status: enums.PaymentStatusWaiting,
	}

	for _, trackID := range []string{"track-1", "track-2"} {
		body, _ := json.Marshal(map[string]string{"trackId": trackID, "status": "paid"})
		rec := postWebhook(t, handler, body, signBody(webhookSecret, body))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d: %s", trackID, rec.Code, rec.Body.String())
		}
	}

	if got := ledger.balances["user@example.com"]; got != 3500 {
		t.Fatalf("expected balance 3500, got %d", got)
	}
	if store.requests["track-1"].Status != enums.PaymentStatusCompleted {
		t.Fatal("paid request must be marked completed")
	}
}

func TestWebhookReplayDoesNotDoubleCredit(t *testing.T) {
	handler, store, ledger := newWebhookFixture()
	store.requests["track-1"] = model.PaymentRequest{
		TrackID: "track-1", Email: "user@example.com", AmountMinor: 1000, Status: enums.PaymentStatusWaiting,
	}

	body := []byte(`{"trackId":"track-1","status":"paid"}`)
	signature := signBody(webhookSecret, body)

	for i := 0; i < 3; i++ {
		rec := postWebhook(t, handler, body, signature)
		if rec.Code != http.StatusOK {
			t.Fatalf("replay #%d: expected 200, got %d", i+1, rec.Code)
		}
	}

	if got := ledger.balances["user@example.com"]; got != 1000 {
		t.Fatalf("expected balance 1000 after replays, got %d", got)
	}
}

func TestWebhookNonPaidStatusIsInformational(t *testing.T) {
	handler, store, ledger := newWebhookFixture()
	store.requests["track-1"] = model.PaymentRequest{
		TrackID: "track-1", Email: "user@example.com", AmountMinor: 1000, Status: enums.PaymentStatusWaiting,
	}

	body := []byte(`{"trackId":"track-1","status":"confirming"}`)
	rec := postWebhook(t, handler, body, signBody(webhookSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if ledger.balances["user@example.com"] != 0 {
		t.Fatal("non-paid status must not credit")
	}
}

func TestWebhookNumericTrackID(t *testing.T) {
	handler, store, ledger := newWebhookFixture()
	store.requests["987654"] = model.PaymentRequest{
		TrackID: "987654", Email: "user@example.com", AmountMinor: 1000, Status: enums.PaymentStatusWaiting,
	}

	body := []byte(`{"trackId":987654,"status":"paid"}`)
	rec := postWebhook(t, handler, body, signBody(webhookSecret, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ledger.balances["user@example.com"] != 1000 {
		t.Fatal("numeric track id must resolve the request")
	}
}

func TestWebhookUnknownTrack(t *testing.T) {
	handler, _, _ := newWebhookFixture()

	body := []byte(`{"trackId":"missing","status":"paid"}`)
	rec := postWebhook(t, handler, body, signBody(webhookSecret, body))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
