package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const priceQuotePrefix = "price:quote:"

// PriceCacheRepo caches marked-up price quotes so repeated lookups for the
// same service and country do not hammer the number provider.
type PriceCacheRepo struct {
	client *goredis.Client
}

func NewPriceCacheRepo(client *goredis.Client) *PriceCacheRepo {
	return &PriceCacheRepo{client: client}
}

func (r *PriceCacheRepo) Get(ctx context.Context, serviceID, countryID string) (int64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if serviceID == "" || countryID == "" {
		return 0, false, fmt.Errorf("invalid price cache key")
	}

	raw, err := r.client.Get(ctx, priceQuoteKey(serviceID, countryID)).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cached quote: %w", err)
	}

	minor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached quote: %w", err)
	}

	return minor, true, nil
}

func (r *PriceCacheRepo) Set(ctx context.Context, serviceID, countryID string, priceMinor int64, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if serviceID == "" || countryID == "" || priceMinor < 0 || ttl <= 0 {
		return fmt.Errorf("invalid price cache payload")
	}

	key := priceQuoteKey(serviceID, countryID)
	if err := r.client.Set(ctx, key, strconv.FormatInt(priceMinor, 10), ttl).Err(); err != nil {
		return fmt.Errorf("set cached quote: %w", err)
	}
	return nil
}

func priceQuoteKey(serviceID, countryID string) string {
	return priceQuotePrefix + serviceID + ":" + countryID
}
