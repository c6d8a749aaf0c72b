package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/oyenolaphilipinc/smsify/internal/repo/redis"
)

func TestLimiterBlocksOn10SecondWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 100, 2)

	ctx := context.Background()
	uid := "uid-42"

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.AllowOrder(ctx, uid)
		if err != nil {
			t.Fatalf("allow order #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowOrder(ctx, uid)
	if err != nil {
		t.Fatalf("allow order #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on third order in 10s window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	mr.FastForward(11 * time.Second)

	retryAfter, allowed, err = limiter.AllowOrder(ctx, uid)
	if err != nil {
		t.Fatalf("allow order after 10s window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after fast forward: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestLimiterBlocksOnMinuteWindow(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 3, 100)

	ctx := context.Background()
	uid := "uid-77"

	for i := 0; i < 3; i++ {
		retryAfter, allowed, err := limiter.AllowOrder(ctx, uid)
		if err != nil {
			t.Fatalf("allow order #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.AllowOrder(ctx, uid)
	if err != nil {
		t.Fatalf("allow order #4: %v", err)
	}
	if allowed {
		t.Fatalf("expected limiter block on fourth order in minute window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}
}

func TestLimiterSeparateCustomers(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	defer mr.Close()
	defer func() { _ = client.Close() }()

	repo := redrepo.NewRateRepo(client)
	limiter := NewLimiter(repo, 100, 1)

	ctx := context.Background()

	if _, allowed, err := limiter.AllowOrder(ctx, "uid-a"); err != nil || !allowed {
		t.Fatalf("first customer should be allowed: allowed=%v err=%v", allowed, err)
	}
	if _, allowed, err := limiter.AllowOrder(ctx, "uid-b"); err != nil || !allowed {
		t.Fatalf("second customer should be allowed: allowed=%v err=%v", allowed, err)
	}
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return mr, client
}
