package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	actsvc "github.com/oyenolaphilipinc/smsify/internal/services/activations"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
)

type memActivationStore struct {
	activations map[string]model.Activation
}

func (s *memActivationStore) Create(_ context.Context, activation model.Activation) (model.Activation, error) {
	s.activations[activation.ID] = activation
	return activation, nil
}

func (s *memActivationStore) FindByID(_ context.Context, id string) (model.Activation, error) {
	activation, ok := s.activations[id]
	if !ok {
		return model.Activation{}, pgrepo.ErrActivationNotFound
	}
	return activation, nil
}

func (s *memActivationStore) ListByEmail(_ context.Context, email string, _ int) ([]model.Activation, error) {
	var out []model.Activation
	for _, a := range s.activations {
		if a.Email == email {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memActivationStore) ListPending(_ context.Context, _ int) ([]model.Activation, error) {
	return nil, nil
}

func (s *memActivationStore) IncrementAttempts(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func (s *memActivationStore) MarkTerminal(_ context.Context, _ string, _ enums.ActivationStatus) (bool, error) {
	return false, nil
}

func (s *memActivationStore) SettleReceived(_ context.Context, id, _, _ string) (model.Activation, bool, error) {
	return s.activations[id], false, nil
}

type memHistoryStore struct{}

func (memHistoryStore) ListByEmail(_ context.Context, _ string, _ int) ([]model.HistoryItem, error) {
	return nil, nil
}

type fixedBalance struct {
	amount int64
}

func (b fixedBalance) Get(_ context.Context, email string) (model.Balance, error) {
	return model.Balance{Customer: model.Customer{Email: email}, AmountMinor: b.amount}, nil
}

type fixedQuote struct {
	minor int64
}

func (q fixedQuote) Quote(_ context.Context, _, _ string) (int64, error) {
	return q.minor, nil
}

type openLimiter struct{}

func (openLimiter) AllowOrder(_ context.Context, _ string) (int64, bool, error) {
	return 0, true, nil
}

type fixedProvider struct {
	activation tempnumber.Activation
	calls      int
}

func (p *fixedProvider) CreateActivation(_ context.Context, _ tempnumber.OrderRequest) (tempnumber.Activation, error) {
	p.calls++
	return p.activation, nil
}

func (p *fixedProvider) GetActivation(_ context.Context, _ string) (tempnumber.Activation, error) {
	return p.activation, nil
}

func newActivationsFixture(balanceMinor int64, provider *fixedProvider) (*ActivationsHandler, *memActivationStore) {
	store := &memActivationStore{activations: map[string]model.Activation{}}
	service := actsvc.NewService(actsvc.Dependencies{
		Activations: store,
		History:     memHistoryStore{},
		Balances:    fixedBalance{amount: balanceMinor},
		Pricing:     fixedQuote{minor: 120},
		Limiter:     openLimiter{},
		Provider:    provider,
	})
	return NewActivationsHandler(service), store
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	identity := authsvc.Identity{UID: "uid-1", Email: "user@example.com", Name: "Test User"}
	return req.WithContext(authsvc.WithIdentity(req.Context(), identity))
}

func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestOrderReturnsPendingActivation(t *testing.T) {
	provider := &fixedProvider{activation: tempnumber.Activation{ActivationID: "act-1", Phone: "+15550001"}}
	handler, _ := newActivationsFixture(500, provider)

	rec := httptest.NewRecorder()
	handler.Order(rec, authedRequest(http.MethodPost, "/v1/activations", `{"service_id":"svc-1","country_id":"us"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		ID         string `json:"id"`
		Phone      string `json:"phone"`
		PriceMinor int64  `json:"price_minor"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != "act-1" || payload.Phone != "+15550001" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.PriceMinor != 120 {
		t.Fatalf("expected quoted price 120, got %d", payload.PriceMinor)
	}
	if payload.Status != "pending" {
		t.Fatalf("expected pending, got %s", payload.Status)
	}
}

func TestOrderInsufficientFundsReturns402(t *testing.T) {
	provider := &fixedProvider{activation: tempnumber.Activation{ActivationID: "act-1"}}
	handler, _ := newActivationsFixture(100, provider)

	rec := httptest.NewRecorder()
	handler.Order(rec, authedRequest(http.MethodPost, "/v1/activations", `{"service_id":"svc-1","country_id":"us"}`))

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	if provider.calls != 0 {
		t.Fatal("provider must not be called without funds")
	}
}

func TestOrderRequiresAuth(t *testing.T) {
	provider := &fixedProvider{activation: tempnumber.Activation{ActivationID: "act-1"}}
	handler, _ := newActivationsFixture(500, provider)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/activations", strings.NewReader(`{"service_id":"svc-1","country_id":"us"}`))
	handler.Order(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStatusUnknownActivationReturns404(t *testing.T) {
	provider := &fixedProvider{}
	handler, _ := newActivationsFixture(500, provider)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/v1/activations/missing", "")
	req = withChiParam(req, "activationID", "missing")
	handler.Status(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
