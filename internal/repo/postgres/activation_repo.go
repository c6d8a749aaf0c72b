package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oyenolaphilipinc/smsify/internal/domain/enums"
	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

var ErrActivationNotFound = errors.New("activation not found")

type ActivationRepo struct {
	pool *pgxpool.Pool
}

func NewActivationRepo(pool *pgxpool.Pool) *ActivationRepo {
	return &ActivationRepo{pool: pool}
}

func (r *ActivationRepo) Create(ctx context.Context, activation model.Activation) (model.Activation, error) {
	if r.pool == nil {
		return model.Activation{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(activation.ID) == "" || strings.TrimSpace(activation.Email) == "" {
		return model.Activation{}, fmt.Errorf("invalid activation payload")
	}
	if activation.Status == "" {
		activation.Status = enums.ActivationStatusPending
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO activations (
	id,
	email,
	uid,
	service_id,
	country_id,
	service_name,
	country_name,
	phone,
	price_minor,
	status,
	charged,
	attempts,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, 0, NOW(), NOW())
RETURNING `+activationColumns+`
`, activation.ID, strings.ToLower(strings.TrimSpace(activation.Email)), activation.UID,
		activation.ServiceID, activation.CountryID, activation.ServiceName, activation.CountryName,
		activation.Phone, activation.PriceMinor, string(activation.Status))

	rec, err := scanActivationRow(row)
	if err != nil {
		return model.Activation{}, fmt.Errorf("create activation: %w", err)
	}
	return rec, nil
}

func (r *ActivationRepo) FindByID(ctx context.Context, id string) (model.Activation, error) {
	if r.pool == nil {
		return model.Activation{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT `+activationColumns+`
FROM activations
WHERE id = $1
`, strings.TrimSpace(id))

	rec, err := scanActivationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Activation{}, ErrActivationNotFound
		}
		return model.Activation{}, fmt.Errorf("find activation: %w", err)
	}
	return rec, nil
}

func (r *ActivationRepo) ListByEmail(ctx context.Context, email string, limit int) ([]model.Activation, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+activationColumns+`
FROM activations
WHERE email = $1
ORDER BY created_at DESC
LIMIT $2
`, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	return collectActivations(rows)
}

// ListPending returns activations still waiting for an SMS, oldest first, so
// the watcher drains them fairly.
func (r *ActivationRepo) ListPending(ctx context.Context, limit int) ([]model.Activation, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+activationColumns+`
FROM activations
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending activations: %w", err)
	}
	defer rows.Close()

	return collectActivations(rows)
}

// IncrementAttempts bumps the poll counter and returns the new value.
func (r *ActivationRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var attempts int
	err := r.pool.QueryRow(ctx, `
UPDATE activations
SET attempts = attempts + 1, updated_at = NOW()
WHERE id = $1
RETURNING attempts
`, strings.TrimSpace(id)).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrActivationNotFound
		}
		return 0, fmt.Errorf("increment activation attempts: %w", err)
	}

	return attempts, nil
}

// MarkTerminal transitions a pending activation to a terminal state. Returns
// false when the activation was already terminal, so the caller reports the
// outcome at most once.
func (r *ActivationRepo) MarkTerminal(ctx context.Context, id string, status enums.ActivationStatus) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if !status.Terminal() {
		return false, fmt.Errorf("status %q is not terminal", status)
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE activations
SET status = $2, updated_at = NOW()
WHERE id = $1
  AND status = 'pending'
`, strings.TrimSpace(id), string(status))
	if err != nil {
		return false, fmt.Errorf("mark activation terminal: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SettleReceived records a received SMS and charges the quoted price exactly
// once: the activation row is locked, the debit and the history item commit
// atomically with the status change. A replay for an already-charged
// activation changes nothing. When the balance cannot cover the price the
// SMS is still recorded (the user already holds the code) but no balance is
// touched and ErrInsufficientFunds is returned.
func (r *ActivationRepo) SettleReceived(ctx context.Context, id, smsCode, smsText string) (model.Activation, bool, error) {
	if r.pool == nil {
		return model.Activation{}, false, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(smsCode) == "" || strings.TrimSpace(smsText) == "" {
		return model.Activation{}, false, fmt.Errorf("invalid settle payload")
	}

	var out model.Activation
	charged := false
	insufficient := false
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		rec, err := lockActivationTx(txCtx, tx, id)
		if err != nil {
			return err
		}

		if rec.Charged {
			out = rec
			charged = false
			return nil
		}

		inserted, err := insertLedgerEntryTx(txCtx, tx, model.LedgerEntry{
			ID:          uuid.NewString(),
			Email:       rec.Email,
			Provider:    "activation",
			ExternalID:  rec.ID,
			AmountMinor: -rec.PriceMinor,
			Reason:      "sms " + rec.ServiceName,
		})
		if err != nil {
			return err
		}
		if !inserted {
			out = rec
			charged = false
			return nil
		}

		if _, err := debitBalanceTx(txCtx, tx, rec.Email, rec.PriceMinor); err != nil {
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrBalanceNotFound) {
				// Keep the received SMS but roll back the charge attempt:
				// redo the status update in a fresh statement set without the
				// ledger entry.
				insufficient = true
				return errRollbackCharge
			}
			return err
		}

		if err := insertHistoryTx(txCtx, tx, model.HistoryItem{
			ID:          uuid.NewString(),
			Email:       rec.Email,
			PhoneNumber: rec.Phone,
			SMSCode:     smsCode,
			SMSText:     smsText,
			ServiceName: rec.ServiceName,
			CountryName: rec.CountryName,
			PriceMinor:  rec.PriceMinor,
		}); err != nil {
			return err
		}

		updated, err := markReceivedTx(txCtx, tx, rec.ID, smsCode, smsText, true)
		if err != nil {
			return err
		}
		out = updated
		charged = true
		return nil
	})
	if err != nil && !errors.Is(err, errRollbackCharge) {
		return model.Activation{}, false, err
	}

	if insufficient {
		// Separate transaction: mark received without charging.
		err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
			updated, err := markReceivedTx(txCtx, tx, strings.TrimSpace(id), smsCode, smsText, false)
			if err != nil {
				return err
			}
			out = updated
			return nil
		})
		if err != nil {
			return model.Activation{}, false, err
		}
		return out, false, ErrInsufficientFunds
	}

	return out, charged, nil
}

var errRollbackCharge = errors.New("rollback charge")

const activationColumns = `id, email, uid, service_id, country_id, service_name, country_name, phone, price_minor, status, sms_code, sms_text, charged, attempts, created_at, updated_at`

func lockActivationTx(ctx context.Context, tx pgx.Tx, id string) (model.Activation, error) {
	row := tx.QueryRow(ctx, `
SELECT `+activationColumns+`
FROM activations
WHERE id = $1
FOR UPDATE
`, strings.TrimSpace(id))

	rec, err := scanActivationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Activation{}, ErrActivationNotFound
		}
		return model.Activation{}, fmt.Errorf("lock activation: %w", err)
	}
	return rec, nil
}

func markReceivedTx(ctx context.Context, tx pgx.Tx, id, smsCode, smsText string, charged bool) (model.Activation, error) {
	row := tx.QueryRow(ctx, `
UPDATE activations
SET
	status = 'received',
	sms_code = $2,
	sms_text = $3,
	charged = $4,
	updated_at = NOW()
WHERE id = $1
RETURNING `+activationColumns+`
`, id, smsCode, smsText, charged)

	rec, err := scanActivationRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Activation{}, ErrActivationNotFound
		}
		return model.Activation{}, fmt.Errorf("mark activation received: %w", err)
	}
	return rec, nil
}

func insertHistoryTx(ctx context.Context, tx pgx.Tx, item model.HistoryItem) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO history (id, email, phone_number, sms_code, sms_text, service_name, country_name, price_minor, received_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
`, item.ID, item.Email, item.PhoneNumber, item.SMSCode, item.SMSText, item.ServiceName, item.CountryName, item.PriceMinor); err != nil {
		return fmt.Errorf("insert history item: %w", err)
	}
	return nil
}

func scanActivationRow(row pgx.Row) (model.Activation, error) {
	var rec model.Activation
	var status string
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.UID,
		&rec.ServiceID,
		&rec.CountryID,
		&rec.ServiceName,
		&rec.CountryName,
		&rec.Phone,
		&rec.PriceMinor,
		&status,
		&rec.SMSCode,
		&rec.SMSText,
		&rec.Charged,
		&rec.Attempts,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return model.Activation{}, err
	}
	rec.Status = enums.ActivationStatus(status)
	return rec, nil
}

func collectActivations(rows pgx.Rows) ([]model.Activation, error) {
	var activations []model.Activation
	for rows.Next() {
		rec, err := scanActivationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		activations = append(activations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activations: %w", err)
	}
	return activations, nil
}
