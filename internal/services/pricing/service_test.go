package pricing

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
)

type stubPriceSource struct {
	price tempnumber.Price
	err   error
	calls int
}

func (s *stubPriceSource) GetPrice(_ context.Context, _, _ string) (tempnumber.Price, error) {
	s.calls++
	if s.err != nil {
		return tempnumber.Price{}, s.err
	}
	return s.price, nil
}

type memQuoteCache struct {
	values map[string]int64
}

func newMemQuoteCache() *memQuoteCache {
	return &memQuoteCache{values: map[string]int64{}}
}

func (c *memQuoteCache) Get(_ context.Context, serviceID, countryID string) (int64, bool, error) {
	v, ok := c.values[serviceID+":"+countryID]
	return v, ok, nil
}

func (c *memQuoteCache) Set(_ context.Context, serviceID, countryID string, priceMinor int64, _ time.Duration) error {
	c.values[serviceID+":"+countryID] = priceMinor
	return nil
}

func TestQuoteAppliesMargin(t *testing.T) {
	source := &stubPriceSource{price: tempnumber.Price{Suggested: 1.00}}
	svc := NewService(source, nil, nil, Config{ProfitMargin: 0.20})

	minor, err := svc.Quote(context.Background(), "svc-1", "us")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if minor != 120 {
		t.Fatalf("expected 120 cents, got %d", minor)
	}
}

func TestQuoteUsesCache(t *testing.T) {
	source := &stubPriceSource{price: tempnumber.Price{Suggested: 1.00}}
	cache := newMemQuoteCache()
	svc := NewService(source, cache, nil, Config{ProfitMargin: 0.20, QuoteTTL: time.Minute})

	if _, err := svc.Quote(context.Background(), "svc-1", "us"); err != nil {
		t.Fatalf("first quote: %v", err)
	}
	if _, err := svc.Quote(context.Background(), "svc-1", "us"); err != nil {
		t.Fatalf("second quote: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected one provider call, got %d", source.calls)
	}
}

func TestQuoteProviderFailure(t *testing.T) {
	source := &stubPriceSource{err: errors.New("provider down")}
	svc := NewService(source, nil, nil, Config{ProfitMargin: 0.20})

	if _, err := svc.Quote(context.Background(), "svc-1", "us"); !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestQuoteRejectsUnusablePrice(t *testing.T) {
	source := &stubPriceSource{price: tempnumber.Price{Suggested: math.NaN()}}
	svc := NewService(source, nil, nil, Config{ProfitMargin: 0.20})

	if _, err := svc.Quote(context.Background(), "svc-1", "us"); !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestQuoteRejectsEmptyInput(t *testing.T) {
	svc := NewService(&stubPriceSource{}, nil, nil, Config{})

	if _, err := svc.Quote(context.Background(), "", "us"); err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.Quote(context.Background(), "svc-1", ""); err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
