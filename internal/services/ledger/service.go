package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

type BalanceStore interface {
	ApplyCredit(ctx context.Context, rec pgrepo.CreditRecord) (model.Balance, bool, error)
	ApplyDebit(ctx context.Context, rec pgrepo.DebitRecord) (model.Balance, bool, error)
	FindByEmail(ctx context.Context, email string) (model.Balance, error)
	ListEntries(ctx context.Context, email string, limit int) ([]model.LedgerEntry, error)
}

// Service owns the per-customer balance. Every mutation flows through a
// ledger entry keyed by (provider, external id), so replaying a payment
// event or a charge changes nothing.
type Service struct {
	balances BalanceStore
}

type Dependencies struct {
	Balances BalanceStore
}

type CreditInput struct {
	Email       string
	UID         string
	Name        string
	Provider    enums.PaymentProvider
	ExternalID  string
	AmountMinor int64
	Reason      string
}

type DebitInput struct {
	Email       string
	Provider    string
	ExternalID  string
	AmountMinor int64
	Reason      string
}

func NewService(deps Dependencies) *Service {
	return &Service{balances: deps.Balances}
}

// Credit adds funds and reports whether this call actually moved money, or
// was a replay of an already-applied event.
func (s *Service) Credit(ctx context.Context, in CreditInput) (model.Balance, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.ExternalID) == "" {
		return model.Balance{}, false, ErrValidation
	}
	if in.AmountMinor <= 0 {
		return model.Balance{}, false, ErrValidation
	}
	if s.balances == nil {
		return model.Balance{}, false, fmt.Errorf("balance store is nil")
	}

	balance, applied, err := s.balances.ApplyCredit(ctx, pgrepo.CreditRecord{
		Email:       email,
		UID:         strings.TrimSpace(in.UID),
		Name:        strings.TrimSpace(in.Name),
		Provider:    string(in.Provider),
		ExternalID:  strings.TrimSpace(in.ExternalID),
		AmountMinor: in.AmountMinor,
		Reason:      in.Reason,
		Status:      "active",
	})
	if err != nil {
		return model.Balance{}, false, fmt.Errorf("apply credit: %w", err)
	}

	return balance, applied, nil
}

func (s *Service) Debit(ctx context.Context, in DebitInput) (model.Balance, bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.ExternalID) == "" || strings.TrimSpace(in.Provider) == "" {
		return model.Balance{}, false, ErrValidation
	}
	if in.AmountMinor <= 0 {
		return model.Balance{}, false, ErrValidation
	}
	if s.balances == nil {
		return model.Balance{}, false, fmt.Errorf("balance store is nil")
	}

	balance, applied, err := s.balances.ApplyDebit(ctx, pgrepo.DebitRecord{
		Email:       email,
		Provider:    strings.TrimSpace(in.Provider),
		ExternalID:  strings.TrimSpace(in.ExternalID),
		AmountMinor: in.AmountMinor,
		Reason:      in.Reason,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrInsufficientFunds) {
			return model.Balance{}, false, ErrInsufficientFunds
		}
		if errors.Is(err, pgrepo.ErrBalanceNotFound) {
			return model.Balance{}, false, ErrBalanceNotFound
		}
		return model.Balance{}, false, fmt.Errorf("apply debit: %w", err)
	}

	return balance, applied, nil
}

// Get returns the balance, treating a customer with no balance row as zero.
func (s *Service) Get(ctx context.Context, email string) (model.Balance, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.Balance{}, ErrValidation
	}
	if s.balances == nil {
		return model.Balance{}, fmt.Errorf("balance store is nil")
	}

	balance, err := s.balances.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgrepo.ErrBalanceNotFound) {
			return model.Balance{
				Customer: model.Customer{Email: email},
				Status:   "active",
			}, nil
		}
		return model.Balance{}, fmt.Errorf("find balance: %w", err)
	}

	return balance, nil
}

func (s *Service) ListEntries(ctx context.Context, email string, limit int) ([]model.LedgerEntry, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrValidation
	}
	if s.balances == nil {
		return nil, fmt.Errorf("balance store is nil")
	}

	entries, err := s.balances.ListEntries(ctx, email, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
