package activations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	pricingsvc "github.com/oyenolaphilipinc/smsify/internal/services/pricing"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrActivationNotFound = errors.New("activation not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrQuoteUnavailable   = errors.New("quote unavailable")
	ErrProviderBusy       = errors.New("provider busy")
)

// ErrRateLimited carries the wait hint from the order limiter.
type ErrRateLimited struct {
	RetryAfterSec int64
}

func (e *ErrRateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfterSec)
}

type ActivationStore interface {
	Create(ctx context.Context, activation model.Activation) (model.Activation, error)
	FindByID(ctx context.Context, id string) (model.Activation, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]model.Activation, error)
	ListPending(ctx context.Context, limit int) ([]model.Activation, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkTerminal(ctx context.Context, id string, status enums.ActivationStatus) (bool, error)
	SettleReceived(ctx context.Context, id, smsCode, smsText string) (model.Activation, bool, error)
}

type HistoryStore interface {
	ListByEmail(ctx context.Context, email string, limit int) ([]model.HistoryItem, error)
}

type BalanceReader interface {
	Get(ctx context.Context, email string) (model.Balance, error)
}

type PricingService interface {
	Quote(ctx context.Context, serviceID, countryID string) (int64, error)
}

type OrderLimiter interface {
	AllowOrder(ctx context.Context, uid string) (int64, bool, error)
}

type NumberProvider interface {
	CreateActivation(ctx context.Context, req tempnumber.OrderRequest) (tempnumber.Activation, error)
	GetActivation(ctx context.Context, activationID string) (tempnumber.Activation, error)
}

type Service struct {
	activations ActivationStore
	history     HistoryStore
	balances    BalanceReader
	pricing     PricingService
	limiter     OrderLimiter
	provider    NumberProvider
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
}

type Dependencies struct {
	Activations ActivationStore
	History     HistoryStore
	Balances    BalanceReader
	Pricing     PricingService
	Limiter     OrderLimiter
	Provider    NumberProvider
	Logger      *zap.Logger
	Config      Config
}

type Config struct {
	MaxPrice      int
	QualityFactor int
}

type OrderInput struct {
	ServiceID   string
	CountryID   string
	ServiceName string
	CountryName string
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Config.MaxPrice <= 0 {
		deps.Config.MaxPrice = 90
	}
	if deps.Config.QualityFactor <= 0 {
		deps.Config.QualityFactor = 10
	}

	return &Service{
		activations: deps.Activations,
		history:     deps.History,
		balances:    deps.Balances,
		pricing:     deps.Pricing,
		limiter:     deps.Limiter,
		provider:    deps.Provider,
		logger:      logger,
		cfg:         deps.Config,
		now:         time.Now,
	}
}

// Order rents a number for one verification. The balance must cover the
// marked-up quote before the provider is asked for a number, so a broke
// customer never consumes provider inventory.
func (s *Service) Order(ctx context.Context, identity authsvc.Identity, in OrderInput) (model.Activation, error) {
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.CountryID = strings.TrimSpace(in.CountryID)
	if identity.Email == "" || in.ServiceID == "" || in.CountryID == "" {
		return model.Activation{}, ErrValidation
	}

	quoteMinor, err := s.pricing.Quote(ctx, in.ServiceID, in.CountryID)
	if err != nil {
		if errors.Is(err, pricingsvc.ErrQuoteUnavailable) {
			return model.Activation{}, ErrQuoteUnavailable
		}
		if errors.Is(err, pricingsvc.ErrValidation) {
			return model.Activation{}, ErrValidation
		}
		return model.Activation{}, fmt.Errorf("quote price: %w", err)
	}

	balance, err := s.balances.Get(ctx, identity.Email)
	if err != nil {
		return model.Activation{}, fmt.Errorf("read balance: %w", err)
	}
	if balance.AmountMinor < quoteMinor {
		return model.Activation{}, ErrInsufficientFunds
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowOrder(ctx, identity.UID)
		if err != nil {
			return model.Activation{}, fmt.Errorf("order limiter: %w", err)
		}
		if !allowed {
			return model.Activation{}, &ErrRateLimited{RetryAfterSec: retryAfter}
		}
	}

	provAct, err := s.provider.CreateActivation(ctx, tempnumber.OrderRequest{
		ServiceID:     in.ServiceID,
		CountryID:     in.CountryID,
		MaxPrice:      s.cfg.MaxPrice,
		QualityFactor: s.cfg.QualityFactor,
	})
	if err != nil {
		if errors.Is(err, tempnumber.ErrTooManyRequests) {
			return model.Activation{}, ErrProviderBusy
		}
		return model.Activation{}, fmt.Errorf("create provider activation: %w", err)
	}

	activation, err := s.activations.Create(ctx, model.Activation{
		ID:          provAct.ActivationID,
		Email:       identity.Email,
		UID:         identity.UID,
		ServiceID:   in.ServiceID,
		CountryID:   in.CountryID,
		ServiceName: strings.TrimSpace(in.ServiceName),
		CountryName: strings.TrimSpace(in.CountryName),
		Phone:       provAct.Phone,
		PriceMinor:  quoteMinor,
		Status:      enums.ActivationStatusPending,
	})
	if err != nil {
		return model.Activation{}, fmt.Errorf("persist activation: %w", err)
	}

	s.logger.Info("activation ordered",
		zap.String("activation_id", activation.ID),
		zap.String("service_id", in.ServiceID),
		zap.String("country_id", in.CountryID),
		zap.Int64("price_minor", quoteMinor))

	return activation, nil
}

// Status returns one activation, scoped to its owner.
func (s *Service) Status(ctx context.Context, identity authsvc.Identity, id string) (model.Activation, error) {
	id = strings.TrimSpace(id)
	if identity.Email == "" || id == "" {
		return model.Activation{}, ErrValidation
	}

	activation, err := s.activations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrActivationNotFound) {
			return model.Activation{}, ErrActivationNotFound
		}
		return model.Activation{}, fmt.Errorf("find activation: %w", err)
	}
	if activation.Email != identity.Email {
		return model.Activation{}, ErrActivationNotFound
	}

	return activation, nil
}

func (s *Service) List(ctx context.Context, identity authsvc.Identity, limit int) ([]model.Activation, error) {
	if identity.Email == "" {
		return nil, ErrValidation
	}

	activations, err := s.activations.ListByEmail(ctx, identity.Email, limit)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	return activations, nil
}

func (s *Service) ListHistory(ctx context.Context, identity authsvc.Identity, limit int) ([]model.HistoryItem, error) {
	if identity.Email == "" {
		return nil, ErrValidation
	}

	items, err := s.history.ListByEmail(ctx, identity.Email, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return items, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]model.Activation, error) {
	activations, err := s.activations.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending activations: %w", err)
	}
	return activations, nil
}

// Poll checks one pending activation against the provider and advances its
// state: settle on a received SMS, time out after the attempt budget, mark
// errored when the provider cancelled the number.
func (s *Service) Poll(ctx context.Context, activation model.Activation, maxAttempts int) (model.Activation, error) {
	if activation.Status != enums.ActivationStatusPending {
		return activation, nil
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}

	provAct, err := s.provider.GetActivation(ctx, activation.ID)
	if err != nil {
		if errors.Is(err, tempnumber.ErrActivationNotFound) {
			return s.markTerminal(ctx, activation, enums.ActivationStatusError)
		}
		if errors.Is(err, tempnumber.ErrTooManyRequests) {
			// Back off, keep the attempt budget untouched.
			return activation, nil
		}
		return activation, fmt.Errorf("poll provider activation: %w", err)
	}

	if provAct.Received() {
		settled, charged, err := s.activations.SettleReceived(ctx, activation.ID, *provAct.SMSCode, *provAct.SMSText)
		if err != nil {
			if errors.Is(err, pgrepo.ErrInsufficientFunds) {
				s.logger.Warn("sms received but balance could not cover charge",
					zap.String("activation_id", activation.ID))
				return settled, nil
			}
			return activation, fmt.Errorf("settle received sms: %w", err)
		}

		s.logger.Info("sms received",
			zap.String("activation_id", activation.ID),
			zap.Bool("charged", charged))
		return settled, nil
	}

	if terminalProviderStatus(provAct.ActivationStatus) {
		return s.markTerminal(ctx, activation, enums.ActivationStatusError)
	}

	attempts, err := s.activations.IncrementAttempts(ctx, activation.ID)
	if err != nil {
		return activation, fmt.Errorf("count poll attempt: %w", err)
	}
	if attempts >= maxAttempts {
		return s.markTerminal(ctx, activation, enums.ActivationStatusTimeout)
	}

	activation.Attempts = attempts
	return activation, nil
}

func (s *Service) markTerminal(ctx context.Context, activation model.Activation, status enums.ActivationStatus) (model.Activation, error) {
	changed, err := s.activations.MarkTerminal(ctx, activation.ID, status)
	if err != nil {
		return activation, fmt.Errorf("mark activation %s: %w", status, err)
	}
	if changed {
		s.logger.Info("activation closed",
			zap.String("activation_id", activation.ID),
			zap.String("status", string(status)))
	}
	activation.Status = status
	return activation, nil
}

func terminalProviderStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "cancelled", "canceled", "banned", "expired":
		return true
	default:
		return false
	}
}
