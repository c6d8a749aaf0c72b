package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

var ErrPaymentRequestNotFound = errors.New("payment request not found")

type PaymentRequestRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRequestRepo(pool *pgxpool.Pool) *PaymentRequestRepo {
	return &PaymentRequestRepo{pool: pool}
}

func (r *PaymentRequestRepo) Create(ctx context.Context, req model.PaymentRequest) (model.PaymentRequest, error) {
	if r.pool == nil {
		return model.PaymentRequest{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(req.TrackID) == "" || strings.TrimSpace(req.Email) == "" || req.AmountMinor <= 0 {
		return model.PaymentRequest{}, fmt.Errorf("invalid payment request payload")
	}
	if req.Status == "" {
		req.Status = enums.PaymentStatusWaiting
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO payment_requests (
	track_id,
	email,
	amount_minor,
	currency,
	pay_currency,
	status,
	pay_link,
	expires_at,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING track_id, email, amount_minor, currency, pay_currency, status, pay_link, expires_at, created_at, updated_at, completed_at
`, req.TrackID, strings.ToLower(strings.TrimSpace(req.Email)), req.AmountMinor, req.Currency, req.PayCurrency, string(req.Status), req.PayLink, req.ExpiresAt)

	rec, err := scanPaymentRequestRow(row)
	if err != nil {
		return model.PaymentRequest{}, fmt.Errorf("create payment request: %w", err)
	}
	return rec, nil
}

func (r *PaymentRequestRepo) FindByTrackID(ctx context.Context, trackID string) (model.PaymentRequest, error) {
	if r.pool == nil {
		return model.PaymentRequest{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT track_id, email, amount_minor, currency, pay_currency, status, pay_link, expires_at, created_at, updated_at, completed_at
FROM payment_requests
WHERE track_id = $1
`, strings.TrimSpace(trackID))

	rec, err := scanPaymentRequestRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PaymentRequest{}, ErrPaymentRequestNotFound
		}
		return model.PaymentRequest{}, fmt.Errorf("find payment request: %w", err)
	}
	return rec, nil
}

func (r *PaymentRequestRepo) UpdateStatus(ctx context.Context, trackID string, status enums.PaymentStatus) (model.PaymentRequest, error) {
	if r.pool == nil {
		return model.PaymentRequest{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
UPDATE payment_requests
SET
	status = $2,
	completed_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE completed_at END,
	updated_at = NOW()
WHERE track_id = $1
RETURNING track_id, email, amount_minor, currency, pay_currency, status, pay_link, expires_at, created_at, updated_at, completed_at
`, strings.TrimSpace(trackID), string(status))

	rec, err := scanPaymentRequestRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PaymentRequest{}, ErrPaymentRequestNotFound
		}
		return model.PaymentRequest{}, fmt.Errorf("update payment request status: %w", err)
	}
	return rec, nil
}

func (r *PaymentRequestRepo) ListByEmail(ctx context.Context, email string, limit int) ([]model.PaymentRequest, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT track_id, email, amount_minor, currency, pay_currency, status, pay_link, expires_at, created_at, updated_at, completed_at
FROM payment_requests
WHERE email = $1
ORDER BY created_at DESC
LIMIT $2
`, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, fmt.Errorf("list payment requests: %w", err)
	}
	defer rows.Close()

	var requests []model.PaymentRequest
	for rows.Next() {
		rec, err := scanPaymentRequestRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment request: %w", err)
		}
		requests = append(requests, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment requests: %w", err)
	}

	return requests, nil
}

// ExpireDue marks waiting requests past their invoice lifetime. Returns how
// many rows changed.
func (r *PaymentRequestRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE payment_requests
SET status = 'expired', updated_at = NOW()
WHERE status = 'waiting'
  AND expires_at <= $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire payment requests: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanPaymentRequestRow(row pgx.Row) (model.PaymentRequest, error) {
	var rec model.PaymentRequest
	var status string
	if err := row.Scan(
		&rec.TrackID,
		&rec.Email,
		&rec.AmountMinor,
		&rec.Currency,
		&rec.PayCurrency,
		&status,
		&rec.PayLink,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.CompletedAt,
	); err != nil {
		return model.PaymentRequest{}, err
	}
	rec.Status = enums.PaymentStatus(status)
	return rec, nil
}
