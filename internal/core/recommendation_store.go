package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type recommendationStore struct {
	pool *pgxpool.Pool
}

// NewRecommendationStore constructs the PostgreSQL-backed recommendation log.
func NewRecommendationStore(pool *pgxpool.Pool) RecommendationStore {
	return &recommendationStore{pool: pool}
}

func (s *recommendationStore) Append(ctx context.Context, rec *PriceRecommendation) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO price_recommendations (product_id, currency, recommended_value, recommended_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		rec.ProductID, rec.Currency, rec.RecommendedValue, rec.RecommendedAt, rec.Status,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("append recommendation for product %s: %w", rec.ProductID, err)
	}
	return nil
}

// LatestForProduct returns the most recent recommendation by recommended_at,
// or (nil, nil) when the product has none. Served by the
// (product_id, recommended_at DESC) index rather than a full-log scan.
func (s *recommendationStore) LatestForProduct(ctx context.Context, productID string) (*PriceRecommendation, error) {
	rec := &PriceRecommendation{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, currency, recommended_value, recommended_at, status
		FROM price_recommendations
		WHERE product_id = $1
		ORDER BY recommended_at DESC, id DESC
		LIMIT 1`,
		productID,
	).Scan(&rec.ID, &rec.ProductID, &rec.Currency, &rec.RecommendedValue, &rec.RecommendedAt, &rec.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest recommendation for product %s: %w", productID, err)
	}
	return rec, nil
}

func (s *recommendationStore) ListForProduct(ctx context.Context, productID string) ([]PriceRecommendation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, currency, recommended_value, recommended_at, status
		FROM price_recommendations
		WHERE product_id = $1
		ORDER BY recommended_at DESC, id DESC`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list recommendations for product %s: %w", productID, err)
	}
	defer rows.Close()

	var recs []PriceRecommendation
	for rows.Next() {
		var rec PriceRecommendation
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.Currency, &rec.RecommendedValue,
			&rec.RecommendedAt, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
