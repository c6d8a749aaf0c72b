package workerapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/config"
	"github.com/oyenolaphilipinc/smsify/internal/infra/httpclient"
	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
	"github.com/oyenolaphilipinc/smsify/internal/jobs/payexpiry"
	"github.com/oyenolaphilipinc/smsify/internal/jobs/smswatch"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	redrepo "github.com/oyenolaphilipinc/smsify/internal/repo/redis"
	actsvc "github.com/oyenolaphilipinc/smsify/internal/services/activations"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
	pricingsvc "github.com/oyenolaphilipinc/smsify/internal/services/pricing"
)

// App runs the background side of the service: the SMS watcher that polls
// pending activations and the expiry sweep for stale payment requests.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client

	watchJob  *smswatch.Job
	expiryJob *payexpiry.Job
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker app: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis for worker app: %w", err)
	}

	balanceRepo := pgrepo.NewBalanceRepo(pool)
	activationRepo := pgrepo.NewActivationRepo(pool)
	historyRepo := pgrepo.NewHistoryRepo(pool)
	paymentRequestRepo := pgrepo.NewPaymentRequestRepo(pool)
	priceCacheRepo := redrepo.NewPriceCacheRepo(redisClient)

	httpClient := httpclient.New(15 * time.Second)
	numberProvider := tempnumber.NewClient(httpClient, cfg.SMS.BaseURL, cfg.SMS.APIKey)

	ledgerService := ledgersvc.NewService(ledgersvc.Dependencies{Balances: balanceRepo})
	pricingService := pricingsvc.NewService(numberProvider, priceCacheRepo, log, pricingsvc.Config{
		ProfitMargin: cfg.Pricing.ProfitMargin,
		QuoteTTL:     cfg.Pricing.QuoteTTL,
	})
	activationService := actsvc.NewService(actsvc.Dependencies{
		Activations: activationRepo,
		History:     historyRepo,
		Balances:    ledgerService,
		Pricing:     pricingService,
		Provider:    numberProvider,
		Logger:      log,
		Config: actsvc.Config{
			MaxPrice:      cfg.SMS.MaxPrice,
			QualityFactor: cfg.SMS.QualityFactor,
		},
	})

	return &App{
		cfg:       cfg,
		logger:    log,
		postgres:  pool,
		redis:     redisClient,
		watchJob:  smswatch.New(activationService, cfg.Watch.MaxAttempts, 0, log),
		expiryJob: payexpiry.New(paymentRequestRepo, log),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runWatchLoop(ctx)
	}()
	go func() {
		errCh <- a.runExpiryLoop(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("worker app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) runWatchLoop(ctx context.Context) error {
	interval := a.cfg.Watch.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.watchJob.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("sms sweep failed", zap.Error(err))
			}
		}
	}
}

func (a *App) runExpiryLoop(ctx context.Context) error {
	interval := a.cfg.Watch.ExpireEvery
	if interval <= 0 {
		interval = time.Minute
	}

	if err := a.expiryJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.expiryJob.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("payment expiry sweep failed", zap.Error(err))
			}
		}
	}
}
