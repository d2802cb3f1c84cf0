package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PriceListFilter controls the paged price listing.
type PriceListFilter struct {
	Currency string
	Page     int // zero-based
	Size     int
	SortBy   string // "product_id", "currency", "value", "last_updated"
	Desc     bool
}

// PriceService provides current price snapshots keyed by (product, currency).
type PriceService interface {
	Upsert(ctx context.Context, p Price) error
	ByProduct(ctx context.Context, productID string) ([]Price, error)
	List(ctx context.Context, filter PriceListFilter) ([]Price, error)
	// SnapshotForCurrency returns one PriceInfo per product that has a price
	// in the given currency, as input for a recommendation run.
	SnapshotForCurrency(ctx context.Context, currency string) (map[string]PriceInfo, error)
}

type priceService struct {
	pool *pgxpool.Pool
}

// NewPriceService constructs a PriceService backed by PostgreSQL.
func NewPriceService(pool *pgxpool.Pool) PriceService {
	return &priceService{pool: pool}
}

func (s *priceService) Upsert(ctx context.Context, p Price) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO prices (product_id, currency, value, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, currency) DO UPDATE SET
			value        = EXCLUDED.value,
			last_updated = EXCLUDED.last_updated`,
		p.ProductID, p.Currency, p.Value, p.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert price (%s, %s): %w", p.ProductID, p.Currency, err)
	}
	return nil
}

func (s *priceService) ByProduct(ctx context.Context, productID string) ([]Price, error) {
	return s.query(ctx, `
		SELECT product_id, currency, value, last_updated
		FROM prices
		WHERE product_id = $1
		ORDER BY currency`, productID)
}

// sortColumns whitelists sortable columns; anything else falls back to
// product_id to keep the listing free of SQL injection.
var sortColumns = map[string]string{
	"product_id":   "product_id",
	"currency":     "currency",
	"value":        "value",
	"last_updated": "last_updated",
}

func (s *priceService) List(ctx context.Context, filter PriceListFilter) ([]Price, error) {
	col, ok := sortColumns[filter.SortBy]
	if !ok {
		col = "product_id"
	}
	dir := "ASC"
	if filter.Desc {
		dir = "DESC"
	}
	size := filter.Size
	if size <= 0 {
		size = 20
	}
	offset := filter.Page * size

	where := ""
	args := []any{size, offset}
	if filter.Currency != "" {
		where = "WHERE currency = $3"
		args = append(args, filter.Currency)
	}
	query := fmt.Sprintf(`
		SELECT product_id, currency, value, last_updated
		FROM prices
		%s
		ORDER BY %s %s, currency
		LIMIT $1 OFFSET $2`, where, col, dir)
	return s.query(ctx, query, args...)
}

func (s *priceService) query(ctx context.Context, sql string, args ...any) ([]Price, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	defer rows.Close()

	var prices []Price
	for rows.Next() {
		var p Price
		if err := rows.Scan(&p.ProductID, &p.Currency, &p.Value, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (s *priceService) SnapshotForCurrency(ctx context.Context, currency string) (map[string]PriceInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_id, currency, value
		FROM prices
		WHERE currency = $1`, currency)
	if err != nil {
		return nil, fmt.Errorf("price snapshot for %s: %w", currency, err)
	}
	defer rows.Close()

	snapshot := make(map[string]PriceInfo)
	for rows.Next() {
		var productID string
		var info PriceInfo
		if err := rows.Scan(&productID, &info.Currency, &info.Value); err != nil {
			return nil, fmt.Errorf("scan price snapshot: %w", err)
		}
		snapshot[productID] = info
	}
	return snapshot, rows.Err()
}
