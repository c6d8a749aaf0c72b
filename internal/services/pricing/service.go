package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrQuoteUnavailable = errors.New("quote unavailable")
)

type PriceSource interface {
	GetPrice(ctx context.Context, serviceID, countryID string) (tempnumber.Price, error)
}

type QuoteCache interface {
	Get(ctx context.Context, serviceID, countryID string) (int64, bool, error)
	Set(ctx context.Context, serviceID, countryID string, priceMinor int64, ttl time.Duration) error
}

// Service turns provider prices into customer quotes. The quote already
// includes the profit margin, so everything downstream compares and charges
// one number.
type Service struct {
	source PriceSource
	cache  QuoteCache
	logger *zap.Logger
	margin float64
	ttl    time.Duration
}

type Config struct {
	ProfitMargin float64
	QuoteTTL     time.Duration
}

func NewService(source PriceSource, cache QuoteCache, logger *zap.Logger, cfg Config) *Service {
	if cfg.ProfitMargin < 0 {
		cfg.ProfitMargin = 0
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		source: source,
		cache:  cache,
		logger: logger,
		margin: cfg.ProfitMargin,
		ttl:    cfg.QuoteTTL,
	}
}

// Quote returns the marked-up price in minor units for one activation.
func (s *Service) Quote(ctx context.Context, serviceID, countryID string) (int64, error) {
	serviceID = strings.TrimSpace(serviceID)
	countryID = strings.TrimSpace(countryID)
	if serviceID == "" || countryID == "" {
		return 0, ErrValidation
	}
	if s.source == nil {
		return 0, fmt.Errorf("price source is nil")
	}

	if s.cache != nil {
		minor, ok, err := s.cache.Get(ctx, serviceID, countryID)
		if err != nil {
			s.logger.Warn("price cache read failed", zap.Error(err))
		} else if ok {
			return minor, nil
		}
	}

	price, err := s.source.GetPrice(ctx, serviceID, countryID)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrQuoteUnavailable, err)
	}
	if price.Suggested <= 0 {
		return 0, ErrQuoteUnavailable
	}

	base, err := rules.MajorToMinor(price.Suggested)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrQuoteUnavailable, err)
	}
	minor := rules.ApplyMarkup(base, s.margin)

	if s.cache != nil {
		if err := s.cache.Set(ctx, serviceID, countryID, minor, s.ttl); err != nil {
			s.logger.Warn("price cache write failed", zap.Error(err))
		}
	}

	return minor, nil
}
