package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

var (
	ErrBalanceNotFound   = errors.New("balance not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// BalanceRepo owns every mutation of stored balances. Each credit or debit
// runs inside one transaction together with its ledger entry; the
// (provider, external_id) unique key makes replays of the same settlement
// apply at most once.
type BalanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

type CreditRecord struct {
	Email       string
	UID         string
	Name        string
	Provider    string
	ExternalID  string
	AmountMinor int64
	Reason      string
	Status      string
}

type DebitRecord struct {
	Email       string
	Provider    string
	ExternalID  string
	AmountMinor int64
	Reason      string
}

// ApplyCredit adds the settled amount to the customer's balance, creating
// the balance row on first credit. The second return value is false when the
// ledger already holds this (provider, external_id) pair and nothing was
// changed.
func (r *BalanceRepo) ApplyCredit(ctx context.Context, in CreditRecord) (model.Balance, bool, error) {
	if r.pool == nil {
		return model.Balance{}, false, fmt.Errorf("postgres pool is nil")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.AmountMinor <= 0 || strings.TrimSpace(in.ExternalID) == "" {
		return model.Balance{}, false, fmt.Errorf("invalid credit payload")
	}
	status := in.Status
	if status == "" {
		status = "successful"
	}

	var out model.Balance
	applied := false
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		inserted, err := insertLedgerEntryTx(txCtx, tx, model.LedgerEntry{
			ID:          uuid.NewString(),
			Email:       email,
			Provider:    in.Provider,
			ExternalID:  in.ExternalID,
			AmountMinor: in.AmountMinor,
			Reason:      in.Reason,
		})
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := findBalanceTx(txCtx, tx, email)
			if err != nil {
				return err
			}
			out = existing
			applied = false
			return nil
		}

		row := tx.QueryRow(txCtx, `
INSERT INTO balances (
	customer_email,
	customer_uid,
	customer_name,
	amount_minor,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (customer_email) DO UPDATE
SET
	amount_minor = balances.amount_minor + EXCLUDED.amount_minor,
	customer_uid = CASE WHEN EXCLUDED.customer_uid <> '' THEN EXCLUDED.customer_uid ELSE balances.customer_uid END,
	customer_name = CASE WHEN EXCLUDED.customer_name <> '' THEN EXCLUDED.customer_name ELSE balances.customer_name END,
	status = EXCLUDED.status,
	updated_at = NOW()
RETURNING id, customer_email, customer_uid, customer_name, amount_minor, status, created_at, updated_at
`, email, in.UID, in.Name, in.AmountMinor, status)

		rec, err := scanBalanceRow(row)
		if err != nil {
			return fmt.Errorf("apply credit: %w", err)
		}
		out = rec
		applied = true
		return nil
	})
	if err != nil {
		return model.Balance{}, false, err
	}

	return out, applied, nil
}

// ApplyDebit subtracts the amount when the balance covers it. No row is
// touched otherwise; callers see ErrInsufficientFunds and the ledger stays
// clean because the whole transaction rolls back.
func (r *BalanceRepo) ApplyDebit(ctx context.Context, in DebitRecord) (model.Balance, bool, error) {
	if r.pool == nil {
		return model.Balance{}, false, fmt.Errorf("postgres pool is nil")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.AmountMinor <= 0 || strings.TrimSpace(in.ExternalID) == "" {
		return model.Balance{}, false, fmt.Errorf("invalid debit payload")
	}

	var out model.Balance
	applied := false
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		inserted, err := insertLedgerEntryTx(txCtx, tx, model.LedgerEntry{
			ID:          uuid.NewString(),
			Email:       email,
			Provider:    in.Provider,
			ExternalID:  in.ExternalID,
			AmountMinor: -in.AmountMinor,
			Reason:      in.Reason,
		})
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := findBalanceTx(txCtx, tx, email)
			if err != nil {
				return err
			}
			out = existing
			applied = false
			return nil
		}

		rec, err := debitBalanceTx(txCtx, tx, email, in.AmountMinor)
		if err != nil {
			return err
		}
		out = rec
		applied = true
		return nil
	})
	if err != nil {
		return model.Balance{}, false, err
	}

	return out, applied, nil
}

func (r *BalanceRepo) FindByEmail(ctx context.Context, email string) (model.Balance, error) {
	if r.pool == nil {
		return model.Balance{}, fmt.Errorf("postgres pool is nil")
	}

	row := r.pool.QueryRow(ctx, `
SELECT id, customer_email, customer_uid, customer_name, amount_minor, status, created_at, updated_at
FROM balances
WHERE customer_email = $1
`, strings.ToLower(strings.TrimSpace(email)))

	rec, err := scanBalanceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Balance{}, ErrBalanceNotFound
		}
		return model.Balance{}, fmt.Errorf("find balance by email: %w", err)
	}

	return rec, nil
}

// ListEntries returns the applied credits and debits for one customer,
// newest first.
func (r *BalanceRepo) ListEntries(ctx context.Context, email string, limit int) ([]model.LedgerEntry, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, email, provider, external_id, amount_minor, reason, created_at
FROM ledger_entries
WHERE email = $1
ORDER BY created_at DESC
LIMIT $2
`, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Email,
			&entry.Provider,
			&entry.ExternalID,
			&entry.AmountMinor,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func insertLedgerEntryTx(ctx context.Context, tx pgx.Tx, entry model.LedgerEntry) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	tag, err := tx.Exec(ctx, `
INSERT INTO ledger_entries (id, email, provider, external_id, amount_minor, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (provider, external_id) DO NOTHING
`, entry.ID, entry.Email, entry.Provider, entry.ExternalID, entry.AmountMinor, entry.Reason)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func debitBalanceTx(ctx context.Context, tx pgx.Tx, email string, amountMinor int64) (model.Balance, error) {
	row := tx.QueryRow(ctx, `
UPDATE balances
SET amount_minor = amount_minor - $2, updated_at = NOW()
WHERE customer_email = $1
  AND amount_minor >= $2
RETURNING id, customer_email, customer_uid, customer_name, amount_minor, status, created_at, updated_at
`, email, amountMinor)

	rec, err := scanBalanceRow(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Balance{}, fmt.Errorf("apply debit: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM balances WHERE customer_email = $1)
`, email).Scan(&exists); err != nil {
		return model.Balance{}, fmt.Errorf("check balance existence: %w", err)
	}
	if exists {
		return model.Balance{}, ErrInsufficientFunds
	}
	return model.Balance{}, ErrBalanceNotFound
}

func findBalanceTx(ctx context.Context, tx pgx.Tx, email string) (model.Balance, error) {
	row := tx.QueryRow(ctx, `
SELECT id, customer_email, customer_uid, customer_name, amount_minor, status, created_at, updated_at
FROM balances
WHERE customer_email = $1
`, email)

	rec, err := scanBalanceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Balance{}, ErrBalanceNotFound
		}
		return model.Balance{}, fmt.Errorf("find balance in tx: %w", err)
	}
	return rec, nil
}

func scanBalanceRow(row pgx.Row) (model.Balance, error) {
	var rec model.Balance
	if err := row.Scan(
		&rec.ID,
		&rec.Customer.Email,
		&rec.Customer.UID,
		&rec.Customer.Name,
		&rec.AmountMinor,
		&rec.Status,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return model.Balance{}, err
	}
	return rec, nil
}
