package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BuildingService provides building lookups and the upsert used by ingestion.
type BuildingService interface {
	GetByID(ctx context.Context, id string) (*Building, error)
	List(ctx context.Context) ([]Building, error)
	ListByIDs(ctx context.Context, ids []string) ([]Building, error)
	Upsert(ctx context.Context, b Building) error
}

type buildingService struct {
	pool *pgxpool.Pool
}

// NewBuildingService constructs a BuildingService backed by PostgreSQL.
func NewBuildingService(pool *pgxpool.Pool) BuildingService {
	return &buildingService{pool: pool}
}

func (s *buildingService) GetByID(ctx context.Context, id string) (*Building, error) {
	b := &Building{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(region, '')
		FROM buildings
		WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.Type, &b.Region)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "building", ID: id}
		}
		return nil, fmt.Errorf("fetch building %s: %w", id, err)
	}
	return b, nil
}

func (s *buildingService) List(ctx context.Context) ([]Building, error) {
	return s.query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(region, '')
		FROM buildings
		ORDER BY id`)
}

func (s *buildingService) ListByIDs(ctx context.Context, ids []string) ([]Building, error) {
	return s.query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(type, ''), COALESCE(region, '')
		FROM buildings
		WHERE id = ANY($1)
		ORDER BY id`, ids)
}

func (s *buildingService) query(ctx context.Context, sql string, args ...any) ([]Building, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []Building
	for rows.Next() {
		var b Building
		if err := rows.Scan(&b.ID, &b.Name, &b.Type, &b.Region); err != nil {
			return nil, fmt.Errorf("scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	return buildings, rows.Err()
}

func (s *buildingService) Upsert(ctx context.Context, b Building) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO buildings (id, name, type, region)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
		ON CONFLICT (id) DO UPDATE SET
			name   = EXCLUDED.name,
			type   = EXCLUDED.type,
			region = EXCLUDED.region`,
		b.ID, b.Name, b.Type, b.Region,
	)
	if err != nil {
		return fmt.Errorf("upsert building %s: %w", b.ID, err)
	}
	return nil
}
