package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductFilter narrows product listings. Zero-valued fields are ignored.
type ProductFilter struct {
	BuildingIDs []string
	RoomType    string
	Beds        *int
	ArrivalFrom *time.Time
	ArrivalTo   *time.Time
}

// ProductService provides product (inventory item) lookups and the upsert
// used by CSV ingestion.
type ProductService interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Upsert(ctx context.Context, p Product) error
	DistinctRoomTypes(ctx context.Context) ([]string, error)
	DistinctBeds(ctx context.Context) ([]int, error)
	DistinctProductGroups(ctx context.Context) ([]string, error)
	ArrivalDateRange(ctx context.Context) (min, max *time.Time, err error)
}

type productService struct {
	pool *pgxpool.Pool
}

// NewProductService constructs a ProductService backed by PostgreSQL.
func NewProductService(pool *pgxpool.Pool) ProductService {
	return &productService{pool: pool}
}

const productColumns = `id, building_id, COALESCE(room_name, ''), arrival_date, beds,
	COALESCE(room_type, ''), grade, private_pool, product_group`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	err := row.Scan(&p.ID, &p.BuildingID, &p.RoomName, &p.ArrivalDate, &p.Beds,
		&p.RoomType, &p.Grade, &p.PrivatePool, &p.ProductGroup)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: id}
		}
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}
	return p, nil
}

func (s *productService) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(filter.BuildingIDs) > 0 {
		query += " AND building_id = ANY(" + arg(filter.BuildingIDs) + ")"
	}
	if filter.RoomType != "" {
		query += " AND room_type = " + arg(filter.RoomType)
	}
	if filter.Beds != nil {
		query += " AND beds = " + arg(*filter.Beds)
	}
	if filter.ArrivalFrom != nil {
		query += " AND arrival_date >= " + arg(*filter.ArrivalFrom)
	}
	if filter.ArrivalTo != nil {
		query += " AND arrival_date <= " + arg(*filter.ArrivalTo)
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Upsert inserts or fully replaces a product row, keyed by id.
func (s *productService) Upsert(ctx context.Context, p Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, building_id, room_name, arrival_date, beds, room_type, grade, private_pool, product_group)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			building_id   = EXCLUDED.building_id,
			room_name     = EXCLUDED.room_name,
			arrival_date  = EXCLUDED.arrival_date,
			beds          = EXCLUDED.beds,
			room_type     = EXCLUDED.room_type,
			grade         = EXCLUDED.grade,
			private_pool  = EXCLUDED.private_pool,
			product_group = EXCLUDED.product_group`,
		p.ID, p.BuildingID, p.RoomName, p.ArrivalDate, p.Beds, p.RoomType, p.Grade, p.PrivatePool, p.ProductGroup,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

func (s *productService) DistinctRoomTypes(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx,
		"SELECT DISTINCT room_type FROM products WHERE room_type IS NOT NULL AND room_type <> '' ORDER BY room_type")
}

func (s *productService) DistinctProductGroups(ctx context.Context) ([]string, error) {
	return s.distinctStrings(ctx,
		"SELECT DISTINCT product_group FROM products WHERE product_group IS NOT NULL AND product_group <> '' ORDER BY product_group")
}

func (s *productService) distinctStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct query: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *productService) DistinctBeds(ctx context.Context) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT beds FROM products WHERE beds IS NOT NULL ORDER BY beds")
	if err != nil {
		return nil, fmt.Errorf("distinct beds: %w", err)
	}
	defer rows.Close()

	var beds []int
	for rows.Next() {
		var b int
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("scan beds: %w", err)
		}
		beds = append(beds, b)
	}
	return beds, rows.Err()
}

func (s *productService) ArrivalDateRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var min, max *time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT MIN(arrival_date), MAX(arrival_date) FROM products").Scan(&min, &max)
	if err != nil {
		return nil, nil, fmt.Errorf("arrival date range: %w", err)
	}
	return min, max, nil
}
