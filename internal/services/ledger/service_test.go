package ledger

import (
	"context"
	"testing"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
)

type stubBalanceStore struct {
	balances map[string]int64
	seen     map[string]bool
	entries  []model.LedgerEntry
}

func newStubBalanceStore() *stubBalanceStore {
	return &stubBalanceStore{
		balances: map[string]int64{},
		seen:     map[string]bool{},
	}
}

func (s *stubBalanceStore) ApplyCredit(_ context.Context, rec pgrepo.CreditRecord) (model.Balance, bool, error) {
	key := rec.Provider + ":" + rec.ExternalID
	if s.seen[key] {
		return s.balanceFor(rec.Email), false, nil
	}
	s.seen[key] = true
	s.balances[rec.Email] += rec.AmountMinor
	s.entries = append(s.entries, model.LedgerEntry{
		Email:       rec.Email,
		Provider:    rec.Provider,
		ExternalID:  rec.ExternalID,
		AmountMinor: rec.AmountMinor,
		Reason:      rec.Reason,
	})
	return s.balanceFor(rec.Email), true, nil
}

func (s *stubBalanceStore) ApplyDebit(_ context.Context, rec pgrepo.DebitRecord) (model.Balance, bool, error) {
	key := rec.Provider + ":" + rec.ExternalID
	if s.seen[key] {
		return s.balanceFor(rec.Email), false, nil
	}
	current, ok := s.balances[rec.Email]
	if !ok {
		return model.Balance{}, false, pgrepo.ErrBalanceNotFound
	}
	if current < rec.AmountMinor {
		return model.Balance{}, false, pgrepo.ErrInsufficientFunds
	}
	s.seen[key] = true
	s.balances[rec.Email] = current - rec.AmountMinor
	s.entries = append(s.entries, model.LedgerEntry{
		Email:       rec.Email,
		Provider:    rec.Provider,
		ExternalID:  rec.ExternalID,
		AmountMinor: -rec.AmountMinor,
		Reason:      rec.Reason,
	})
	return s.balanceFor(rec.Email), true, nil
}

func (s *stubBalanceStore) FindByEmail(_ context.Context, email string) (model.Balance, error) {
	amount, ok := s.balances[email]
	if !ok {
		return model.Balance{}, pgrepo.ErrBalanceNotFound
	}
	return model.Balance{Customer: model.Customer{Email: email}, AmountMinor: amount, Status: "active"}, nil
}

func (s *stubBalanceStore) ListEntries(_ context.Context, email string, limit int) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Email != email {
			continue
		}
		out = append(out, s.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubBalanceStore) balanceFor(email string) model.Balance {
	return model.Balance{Customer: model.Customer{Email: email}, AmountMinor: s.balances[email], Status: "active"}
}

func TestCreditSumsDeposits(t *testing.T) {
	store := newStubBalanceStore()
	svc := NewService(Dependencies{Balances: store})

	if _, _, err := svc.Credit(context.Background(), CreditInput{
		Email:       "user@example.com",
		Provider:    enums.PaymentProviderCrypto,
		ExternalID:  "track-1",
		AmountMinor: 1000,
	}); err != nil {
		t.Fatalf("first credit: %v", err)
	}

	balance, applied, err := svc.Credit(context.Background(), CreditInput{
		Email:       "User@Example.com",
		Provider:    enums.PaymentProviderCard,
		ExternalID:  "tx-2",
		AmountMinor: 2500,
	})
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if !applied {
		t.Fatal("expected second credit to apply")
	}
	if balance.AmountMinor != 3500 {
		t.Fatalf("expected balance 3500, got %d", balance.AmountMinor)
	}
}

func TestCreditReplayIsIdempotent(t *testing.T) {
	store := newStubBalanceStore()
	svc := NewService(Dependencies{Balances: store})

	in := CreditInput{
		Email:       "user@example.com",
		Provider:    enums.PaymentProviderCrypto,
		ExternalID:  "track-1",
		AmountMinor: 1000,
	}

	if _, _, err := svc.Credit(context.Background(), in); err != nil {
		t.Fatalf("credit: %v", err)
	}

	balance, applied, err := svc.Credit(context.Background(), in)
	if err != nil {
		t.Fatalf("replay credit: %v", err)
	}
	if applied {
		t.Fatal("replay must not apply")
	}
	if balance.AmountMinor != 1000 {
		t.Fatalf("expected balance 1000 after replay, got %d", balance.AmountMinor)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	store := newStubBalanceStore()
	svc := NewService(Dependencies{Balances: store})

	if _, _, err := svc.Credit(context.Background(), CreditInput{
		Email:       "user@example.com",
		Provider:    enums.PaymentProviderCard,
		ExternalID:  "tx-1",
		AmountMinor: 500,
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	_, _, err := svc.Debit(context.Background(), DebitInput{
		Email:       "user@example.com",
		Provider:    "activation",
		ExternalID:  "act-1",
		AmountMinor: 900,
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, err := svc.Get(context.Background(), "user@example.com")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.AmountMinor != 500 {
		t.Fatalf("failed debit must not change balance, got %d", balance.AmountMinor)
	}
}

func TestGetUnknownCustomerIsZero(t *testing.T) {
	svc := NewService(Dependencies{Balances: newStubBalanceStore()})

	balance, err := svc.Get(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if balance.AmountMinor != 0 {
		t.Fatalf("expected zero balance, got %d", balance.AmountMinor)
	}
}

func TestCreditValidation(t *testing.T) {
	svc := NewService(Dependencies{Balances: newStubBalanceStore()})

	cases := []CreditInput{
		{Email: "", ExternalID: "x", AmountMinor: 100},
		{Email: "user@example.com", ExternalID: "", AmountMinor: 100},
		{Email: "user@example.com", ExternalID: "x", AmountMinor: 0},
		{Email: "user@example.com", ExternalID: "x", AmountMinor: -100},
	}
	for _, in := range cases {
		if _, _, err := svc.Credit(context.Background(), in); err != ErrValidation {
			t.Fatalf("expected ErrValidation for %+v, got %v", in, err)
		}
	}
}
