package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type confirmationStore struct {
	pool *pgxpool.Pool
}

// NewConfirmationStore constructs the PostgreSQL-backed confirmation log.
func NewConfirmationStore(pool *pgxpool.Pool) ConfirmationStore {
	return &confirmationStore{pool: pool}
}

func (s *confirmationStore) Append(ctx context.Context, pc *PriceConfirmation) (*PriceConfirmation, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO price_confirmations (product_id, action, confirmed_value, currency, user_id, confirmed_at, synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		pc.ProductID, string(pc.Action), pc.ConfirmedValue, pc.Currency, pc.UserID, pc.ConfirmedAt, pc.Synced,
	).Scan(&pc.ID)
	if err != nil {
		return nil, fmt.Errorf("append confirmation for product %s: %w", pc.ProductID, err)
	}
	return pc, nil
}

func (s *confirmationStore) ListUnsynced(ctx context.Context) ([]PriceConfirmation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, action, confirmed_value, currency, user_id, confirmed_at, synced
		FROM price_confirmations
		WHERE synced = false
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unsynced confirmations: %w", err)
	}
	defer rows.Close()

	var confirmations []PriceConfirmation
	for rows.Next() {
		var pc PriceConfirmation
		var action string
		if err := rows.Scan(&pc.ID, &pc.ProductID, &action, &pc.ConfirmedValue,
			&pc.Currency, &pc.UserID, &pc.ConfirmedAt, &pc.Synced); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		pc.Action = Action(action)
		confirmations = append(confirmations, pc)
	}
	return confirmations, rows.Err()
}

func (s *confirmationStore) MarkSynced(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE price_confirmations SET synced = true WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark confirmation %d synced: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "confirmation", ID: fmt.Sprint(id)}
	}
	return nil
}
