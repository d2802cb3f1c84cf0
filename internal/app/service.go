package app

import (
	"context"

	"pricing-backend/internal/core"
)

// ApplicationService is the single interface transport adapters call. It
// decouples HTTP handling from domain logic; implementations contain no
// transport concerns.
type ApplicationService interface {
	// GetPricingConfig returns the current algorithm tunables.
	GetPricingConfig(ctx context.Context) ConfigResult

	// UpdatePricingConfig applies a partial update to the algorithm tunables.
	// Only ADMIN users may update; omitted fields keep their prior value.
	UpdatePricingConfig(ctx context.Context, req UpdateConfigRequest) (*ConfigResult, error)

	// RunRecommendations executes one pricing engine run over the full
	// inventory, using current prices in the given currency (default USD),
	// and appends the results to the recommendation log.
	RunRecommendations(ctx context.Context, currency string) (*RecommendationRunResult, error)

	// ListRecommendations returns the recommendation log for one product,
	// newest first.
	ListRecommendations(ctx context.Context, productID string) ([]core.PriceRecommendation, error)

	// GetGroupedRecommendations returns products grouped by building with
	// their multi-currency price maps, for review screens.
	GetGroupedRecommendations(ctx context.Context, req GroupedQuery) ([]BuildingGroup, error)

	// BookingsForCluster returns all bookings belonging to products that
	// share the given cluster attributes.
	BookingsForCluster(ctx context.Context, req ClusterQuery) ([]core.Booking, error)

	// Confirm records a single accept/reject/override decision.
	Confirm(ctx context.Context, req ConfirmRequest) (*core.PriceConfirmation, error)

	// ConfirmBatch records a batch of decisions, reporting per-item outcome
	// rather than failing the whole batch.
	ConfirmBatch(ctx context.Context, reqs []ConfirmRequest) []ConfirmBatchResult

	// ListPrices returns a page of current prices.
	ListPrices(ctx context.Context, filter core.PriceListFilter) ([]core.Price, error)

	// PricesByProduct returns all currencies of one product's current price.
	PricesByProduct(ctx context.Context, productID string) ([]core.Price, error)

	// User master data CRUD.
	ListUsers(ctx context.Context) ([]core.User, error)
	GetUser(ctx context.Context, id string) (*core.User, error)
	CreateUser(ctx context.Context, u core.User) (*core.User, error)
	UpdateUser(ctx context.Context, u core.User) (*core.User, error)
	DeleteUser(ctx context.Context, id string) error

	// GetFilters returns the distinct attribute values the UI filters on.
	GetFilters(ctx context.Context) (*FiltersResult, error)

	// OccupancyMetrics returns the naive bookings/products occupancy proxy
	// for one building and arrival date range.
	OccupancyMetrics(ctx context.Context, req OccupancyQuery) (*OccupancyResult, error)

	// RunIngestJob runs one CSV ingestion job: product, booking, price or
	// building.
	RunIngestJob(ctx context.Context, job string) (*IngestResult, error)

	// SyncConfirmations pushes unsynced confirmations to the hotel API.
	SyncConfirmations(ctx context.Context) (*core.SyncReport, error)
}
