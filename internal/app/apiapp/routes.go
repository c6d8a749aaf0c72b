package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	actsvc "github.com/oyenolaphilipinc/smsify/internal/services/activations"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
	paysvc "github.com/oyenolaphilipinc/smsify/internal/services/payments"
	pricingsvc "github.com/oyenolaphilipinc/smsify/internal/services/pricing"
	"github.com/oyenolaphilipinc/smsify/internal/transport/http/handlers"
)

type Dependencies struct {
	Verifier          *authsvc.Verifier
	LedgerService     *ledgersvc.Service
	PaymentService    *paysvc.Service
	PricingService    *pricingsvc.Service
	ActivationService *actsvc.Service
	CallbackSecret    string
	Logger            *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	balanceHandler := handlers.NewBalanceHandler(deps.LedgerService)
	topupHandler := handlers.NewTopupHandler(deps.PaymentService)
	webhookHandler := handlers.NewWebhookHandler(deps.PaymentService, deps.CallbackSecret, deps.Logger)
	pricesHandler := handlers.NewPricesHandler(deps.PricingService)
	activationsHandler := handlers.NewActivationsHandler(deps.ActivationService)
	authMW := AuthMiddleware(deps.Verifier, deps.Logger)

	r.Get("/healthz", healthHandler.Handle)

	// Signed provider callback, no bearer auth.
	r.Post("/webhooks/crypto", webhookHandler.Crypto)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Get("/balance", balanceHandler.Get)
		r.Get("/balance/entries", balanceHandler.Entries)

		r.Post("/topups/card", topupHandler.InitCard)
		r.Post("/topups/card/verify", topupHandler.VerifyCard)
		r.Post("/topups/crypto", topupHandler.InitCrypto)
		r.Get("/topups", topupHandler.List)

		r.Get("/prices", pricesHandler.Quote)

		r.Post("/activations", activationsHandler.Order)
		r.Get("/activations", activationsHandler.List)
		r.Get("/activations/{activationID}", activationsHandler.Status)
		r.Get("/history", activationsHandler.History)
	})
}
