package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/config"
	"github.com/oyenolaphilipinc/smsify/internal/infra/flutterwave"
	"github.com/oyenolaphilipinc/smsify/internal/infra/httpclient"
	"github.com/oyenolaphilipinc/smsify/internal/infra/oxapay"
	"github.com/oyenolaphilipinc/smsify/internal/infra/tempnumber"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	redrepo "github.com/oyenolaphilipinc/smsify/internal/repo/redis"
	actsvc "github.com/oyenolaphilipinc/smsify/internal/services/activations"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
	paysvc "github.com/oyenolaphilipinc/smsify/internal/services/payments"
	pricingsvc "github.com/oyenolaphilipinc/smsify/internal/services/pricing"
	ratesvc "github.com/oyenolaphilipinc/smsify/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	balanceRepo := pgrepo.NewBalanceRepo(pool)
	paymentRequestRepo := pgrepo.NewPaymentRequestRepo(pool)
	activationRepo := pgrepo.NewActivationRepo(pool)
	historyRepo := pgrepo.NewHistoryRepo(pool)
	rateRepo := redrepo.NewRateRepo(redisClient)
	priceCacheRepo := redrepo.NewPriceCacheRepo(redisClient)

	httpClient := httpclient.New(15 * time.Second)
	cardGateway := flutterwave.NewClient(httpClient, cfg.Card.BaseURL, cfg.Card.SecretKey)
	cryptoGateway := oxapay.NewClient(httpClient, cfg.Crypto.BaseURL, cfg.Crypto.MerchantKey)
	numberProvider := tempnumber.NewClient(httpClient, cfg.SMS.BaseURL, cfg.SMS.APIKey)

	verifier := authsvc.NewVerifier(cfg.Auth.JWTSecret)
	ledgerService := ledgersvc.NewService(ledgersvc.Dependencies{Balances: balanceRepo})
	paymentService := paysvc.NewService(paysvc.Dependencies{
		Requests: paymentRequestRepo,
		Ledger:   ledgerService,
		Card:     cardGateway,
		Crypto:   cryptoGateway,
		Logger:   log,
		Config: paysvc.Config{
			CardCurrency:    cfg.Card.Currency,
			CardRedirectURL: cfg.Card.RedirectURL,
			CryptoMerchant:  cfg.Crypto.MerchantKey,
			CryptoCallback:  cfg.Crypto.CallbackURL,
			CryptoReturnURL: cfg.Crypto.ReturnURL,
			InvoiceLifetime: cfg.Crypto.InvoiceLifetime,
		},
	})
	pricingService := pricingsvc.NewService(numberProvider, priceCacheRepo, log, pricingsvc.Config{
		ProfitMargin: cfg.Pricing.ProfitMargin,
		QuoteTTL:     cfg.Pricing.QuoteTTL,
	})
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.OrdersPerMinute, cfg.Limits.OrdersPer10Seconds)
	activationService := actsvc.NewService(actsvc.Dependencies{
		Activations: activationRepo,
		History:     historyRepo,
		Balances:    ledgerService,
		Pricing:     pricingService,
		Limiter:     rateLimiter,
		Provider:    numberProvider,
		Logger:      log,
		Config: actsvc.Config{
			MaxPrice:      cfg.SMS.MaxPrice,
			QualityFactor: cfg.SMS.QualityFactor,
		},
	})

	RegisterRoutes(r, Dependencies{
		Verifier:          verifier,
		LedgerService:     ledgerService,
		PaymentService:    paymentService,
		PricingService:    pricingService,
		ActivationService: activationService,
		CallbackSecret:    cfg.Crypto.CallbackSecret,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
