package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
	"github.com/oyenolaphilipinc/smsify/internal/domain/rules"
	"github.com/oyenolaphilipinc/smsify/internal/infra/flutterwave"
	"github.com/oyenolaphilipinc/smsify/internal/infra/oxapay"
	pgrepo "github.com/oyenolaphilipinc/smsify/internal/repo/postgres"
	authsvc "github.com/oyenolaphilipinc/smsify/internal/services/auth"
	ledgersvc "github.com/oyenolaphilipinc/smsify/internal/services/ledger"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPaymentRejected = errors.New("payment rejected")
)

type PaymentRequestStore interface {
	Create(ctx context.Context, req model.PaymentRequest) (model.PaymentRequest, error)
	FindByTrackID(ctx context.Context, trackID string) (model.PaymentRequest, error)
	UpdateStatus(ctx context.Context, trackID string, status enums.PaymentStatus) (model.PaymentRequest, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]model.PaymentRequest, error)
}

type LedgerService interface {
	Credit(ctx context.Context, in ledgersvc.CreditInput) (model.Balance, bool, error)
}

type CardGateway interface {
	CreatePayment(ctx context.Context, req flutterwave.PaymentRequest) (flutterwave.PaymentLink, error)
	VerifyTransaction(ctx context.Context, transactionID string) (flutterwave.Transaction, error)
}

type CryptoGateway interface {
	CreateInvoice(ctx context.Context, req oxapay.InvoiceRequest) (oxapay.Invoice, error)
}

type Service struct {
	requests PaymentRequestStore
	ledger   LedgerService
	card     CardGateway
	crypto   CryptoGateway
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

type Config struct {
	CardCurrency    string
	CardRedirectURL string
	CryptoMerchant  string
	CryptoCallback  string
	CryptoReturnURL string
	InvoiceLifetime time.Duration
}

type Dependencies struct {
	Requests PaymentRequestStore
	Ledger   LedgerService
	Card     CardGateway
	Crypto   CryptoGateway
	Logger   *zap.Logger
	Config   Config
}

type CardInitResult struct {
	TxRef   string
	PayLink string
}

type InvoiceResult struct {
	TrackID   string
	PayLink   string
	QRCode    string
	ExpiresAt time.Time
}

type CryptoEvent struct {
	TrackID string
	Status  string
}

type ConfirmResult struct {
	TrackID     string
	Email       string
	AmountMinor int64
	Status      enums.PaymentStatus
	Applied     bool
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.InvoiceLifetime <= 0 {
		cfg.InvoiceLifetime = 5 * time.Minute
	}
	if cfg.CardCurrency == "" {
		cfg.CardCurrency = "USD"
	}

	return &Service{
		requests: deps.Requests,
		ledger:   deps.Ledger,
		card:     deps.Card,
		crypto:   deps.Crypto,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// InitializeCard opens a hosted card checkout for a top-up and records the
// pending request under its transaction reference.
func (s *Service) InitializeCard(ctx context.Context, identity authsvc.Identity, amountMinor int64) (CardInitResult, error) {
	if identity.Email == "" {
		return CardInitResult{}, ErrValidation
	}
	if amountMinor <= 0 {
		return CardInitResult{}, ErrValidation
	}
	if s.card == nil {
		return CardInitResult{}, fmt.Errorf("card gateway is nil")
	}

	txRef := "topup-" + uuid.NewString()
	link, err := s.card.CreatePayment(ctx, flutterwave.PaymentRequest{
		TxRef:       txRef,
		Amount:      rules.FormatMinor(amountMinor),
		Currency:    s.cfg.CardCurrency,
		RedirectURL: s.cfg.CardRedirectURL,
		Customer: flutterwave.Customer{
			Email: identity.Email,
			Name:  identity.Name,
		},
	})
	if err != nil {
		if errors.Is(err, flutterwave.ErrGatewayRejected) {
			return CardInitResult{}, ErrPaymentRejected
		}
		return CardInitResult{}, fmt.Errorf("create card payment: %w", err)
	}

	if _, err := s.requests.Create(ctx, model.PaymentRequest{
		TrackID:     txRef,
		Email:       identity.Email,
		AmountMinor: amountMinor,
		Currency:    s.cfg.CardCurrency,
		PayCurrency: s.cfg.CardCurrency,
		Status:      enums.PaymentStatusWaiting,
		PayLink:     link.Link,
		ExpiresAt:   s.now().UTC().Add(s.cfg.InvoiceLifetime),
	}); err != nil {
		return CardInitResult{}, fmt.Errorf("record card payment request: %w", err)
	}

	s.logger.Info("card payment initialized",
		zap.String("tx_ref", txRef),
		zap.Int64("amount_minor", amountMinor))

	return CardInitResult{TxRef: txRef, PayLink: link.Link}, nil
}

// VerifyCard confirms a card transaction with the gateway and credits the
// balance once. The amount credited is what the gateway settled, not what
// the client claims.
func (s *Service) VerifyCard(ctx context.Context, identity authsvc.Identity, transactionID string) (ConfirmResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if identity.Email == "" || transactionID == "" {
		return ConfirmResult{}, ErrValidation
	}
	if s.card == nil {
		return ConfirmResult{}, fmt.Errorf("card gateway is nil")
	}

	tx, err := s.card.VerifyTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, flutterwave.ErrTransactionNotFound) {
			return ConfirmResult{}, ErrPaymentNotFound
		}
		return ConfirmResult{}, fmt.Errorf("verify card transaction: %w", err)
	}

	if !strings.EqualFold(tx.Status, "successful") {
		return ConfirmResult{
			TrackID: tx.TxRef,
			Email:   identity.Email,
			Status:  enums.PaymentStatusFailed,
		}, nil
	}

	amountMajor, err := tx.Amount.Float64()
	if err != nil || amountMajor <= 0 {
		return ConfirmResult{}, fmt.Errorf("invalid settled amount %q", tx.Amount)
	}
	amountMinor, err := rules.MajorToMinor(amountMajor)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("invalid settled amount %q: %w", tx.Amount, err)
	}

	email := strings.ToLower(strings.TrimSpace(tx.Customer.Email))
	if email == "" {
		email = identity.Email
	}

	balance, applied, err := s.ledger.Credit(ctx, ledgersvc.CreditInput{
		Email:       email,
		UID:         identity.UID,
		Name:        identity.Name,
		Provider:    enums.PaymentProviderCard,
		ExternalID:  transactionID,
		AmountMinor: amountMinor,
		Reason:      "card top-up",
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("credit card payment: %w", err)
	}

	if tx.TxRef != "" {
		if _, err := s.requests.UpdateStatus(ctx, tx.TxRef, enums.PaymentStatusCompleted); err != nil &&
			!errors.Is(err, pgrepo.ErrPaymentRequestNotFound) {
			s.logger.Warn("mark card request completed failed",
				zap.String("tx_ref", tx.TxRef), zap.Error(err))
		}
	}

	s.logger.Info("card payment settled",
		zap.String("transaction_id", transactionID),
		zap.Int64("amount_minor", amountMinor),
		zap.Bool("applied", applied),
		zap.Int64("balance_minor", balance.AmountMinor))

	return ConfirmResult{
		TrackID:     tx.TxRef,
		Email:       email,
		AmountMinor: amountMinor,
		Status:      enums.PaymentStatusCompleted,
		Applied:     applied,
	}, nil
}

// CreateInvoice opens a crypto invoice and records the request so the
// webhook can resolve the payer later.
func (s *Service) CreateInvoice(ctx context.Context, identity authsvc.Identity, amountMinor int64, payCurrency string) (InvoiceResult, error) {
	if identity.Email == "" {
		return InvoiceResult{}, ErrValidation
	}
	if amountMinor <= 0 {
		return InvoiceResult{}, ErrValidation
	}
	if s.crypto == nil {
		return InvoiceResult{}, fmt.Errorf("crypto gateway is nil")
	}

	orderID := "topup-" + uuid.NewString()
	invoice, err := s.crypto.CreateInvoice(ctx, oxapay.InvoiceRequest{
		Merchant:    s.cfg.CryptoMerchant,
		Amount:      float64(amountMinor) / 100,
		Currency:    "USD",
		PayCurrency: strings.ToUpper(strings.TrimSpace(payCurrency)),
		CallbackURL: s.cfg.CryptoCallback,
		ReturnURL:   s.cfg.CryptoReturnURL,
		Email:       identity.Email,
		Description: "balance top-up",
		OrderID:     orderID,
		LifeTime:    int(s.cfg.InvoiceLifetime / time.Minute),
	})
	if err != nil {
		if errors.Is(err, oxapay.ErrInvoiceRejected) {
			return InvoiceResult{}, ErrPaymentRejected
		}
		return InvoiceResult{}, fmt.Errorf("create crypto invoice: %w", err)
	}

	expiresAt := s.now().UTC().Add(s.cfg.InvoiceLifetime)
	if _, err := s.requests.Create(ctx, model.PaymentRequest{
		TrackID:     invoice.TrackID,
		Email:       identity.Email,
		AmountMinor: amountMinor,
		Currency:    "USD",
		PayCurrency: strings.ToUpper(strings.TrimSpace(payCurrency)),
		Status:      enums.PaymentStatusWaiting,
		PayLink:     invoice.PayLink,
		ExpiresAt:   expiresAt,
	}); err != nil {
		return InvoiceResult{}, fmt.Errorf("record crypto payment request: %w", err)
	}

	s.logger.Info("crypto invoice created",
		zap.String("track_id", invoice.TrackID),
		zap.Int64("amount_minor", amountMinor))

	return InvoiceResult{
		TrackID:   invoice.TrackID,
		PayLink:   invoice.PayLink,
		QRCode:    invoice.QRCode,
		ExpiresAt: expiresAt,
	}, nil
}

// ConfirmCrypto settles a verified payment-provider callback. Only "paid"
// moves money; anything else just records the status transition. A replay of
// a paid event is a no-op.
func (s *Service) ConfirmCrypto(ctx context.Context, event CryptoEvent) (ConfirmResult, error) {
	trackID := strings.TrimSpace(event.TrackID)
	if trackID == "" {
		return ConfirmResult{}, ErrValidation
	}

	req, err := s.requests.FindByTrackID(ctx, trackID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPaymentRequestNotFound) {
			return ConfirmResult{}, ErrPaymentNotFound
		}
		return ConfirmResult{}, fmt.Errorf("resolve payment request: %w", err)
	}

	status := strings.ToLower(strings.TrimSpace(event.Status))
	if status != "paid" {
		result := ConfirmResult{TrackID: trackID, Email: req.Email, Status: req.Status}
		switch status {
		case "expired":
			updated, err := s.requests.UpdateStatus(ctx, trackID, enums.PaymentStatusExpired)
			if err != nil {
				return ConfirmResult{}, fmt.Errorf("mark request expired: %w", err)
			}
			result.Status = updated.Status
		case "failed":
			updated, err := s.requests.UpdateStatus(ctx, trackID, enums.PaymentStatusFailed)
			if err != nil {
				return ConfirmResult{}, fmt.Errorf("mark request failed: %w", err)
			}
			result.Status = updated.Status
		}
		s.logger.Info("crypto event ignored",
			zap.String("track_id", trackID),
			zap.String("status", status))
		return result, nil
	}

	balance, applied, err := s.ledger.Credit(ctx, ledgersvc.CreditInput{
		Email:       req.Email,
		Provider:    enums.PaymentProviderCrypto,
		ExternalID:  trackID,
		AmountMinor: req.AmountMinor,
		Reason:      "crypto top-up",
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("credit crypto payment: %w", err)
	}

	if _, err := s.requests.UpdateStatus(ctx, trackID, enums.PaymentStatusCompleted); err != nil {
		return ConfirmResult{}, fmt.Errorf("mark request completed: %w", err)
	}

	s.logger.Info("crypto payment settled",
		zap.String("track_id", trackID),
		zap.Int64("amount_minor", req.AmountMinor),
		zap.Bool("applied", applied),
		zap.Int64("balance_minor", balance.AmountMinor))

	return ConfirmResult{
		TrackID:     trackID,
		Email:       req.Email,
		AmountMinor: req.AmountMinor,
		Status:      enums.PaymentStatusCompleted,
		Applied:     applied,
	}, nil
}

func (s *Service) List(ctx context.Context, email string, limit int) ([]model.PaymentRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrValidation
	}

	requests, err := s.requests.ListByEmail(ctx, email, limit)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	return requests, nil
}
