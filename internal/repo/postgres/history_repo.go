package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oyenolaphilipinc/smsify/internal/domain/model"
)

// HistoryRepo reads the received-SMS archive. Rows are written inside the
// activation settle transaction, never here.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) ListByEmail(ctx context.Context, email string, limit int) ([]model.HistoryItem, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, email, phone_number, sms_code, sms_text, service_name, country_name, price_minor, received_at
FROM history
WHERE email = $1
ORDER BY received_at DESC
LIMIT $2
`, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var items []model.HistoryItem
	for rows.Next() {
		var item model.HistoryItem
		if err := rows.Scan(
			&item.ID,
			&item.Email,
			&item.PhoneNumber,
			&item.SMSCode,
			&item.SMSText,
			&item.ServiceName,
			&item.CountryName,
			&item.PriceMinor,
			&item.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return items, nil
}
