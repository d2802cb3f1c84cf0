package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingService provides booking history reads and the insert used by
// ingestion. Bookings are never mutated after creation.
type BookingService interface {
	List(ctx context.Context) ([]Booking, error)
	ListByProducts(ctx context.Context, productIDs []string) ([]Booking, error)
	Insert(ctx context.Context, b Booking) error
}

type bookingService struct {
	pool *pgxpool.Pool
}

// NewBookingService constructs a BookingService backed by PostgreSQL.
func NewBookingService(pool *pgxpool.Pool) BookingService {
	return &bookingService{pool: pool}
}

func (s *bookingService) List(ctx context.Context) ([]Booking, error) {
	return s.query(ctx, `
		SELECT id, product_id, arrival_date, COALESCE(nights, 0), price_paid
		FROM bookings`)
}

func (s *bookingService) ListByProducts(ctx context.Context, productIDs []string) ([]Booking, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	return s.query(ctx, `
		SELECT id, product_id, arrival_date, COALESCE(nights, 0), price_paid
		FROM bookings
		WHERE product_id = ANY($1)`, productIDs)
}

func (s *bookingService) query(ctx context.Context, sql string, args ...any) ([]Booking, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.ProductID, &b.ArrivalDate, &b.Nights, &b.PricePaid); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Insert appends a booking. Re-ingesting the same booking id is a no-op so
// ingestion jobs stay idempotent.
func (s *bookingService) Insert(ctx context.Context, b Booking) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO bookings (id, product_id, arrival_date, nights, price_paid)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.ProductID, b.ArrivalDate, b.Nights, b.PricePaid,
	)
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}
	return nil
}
