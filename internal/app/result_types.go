package app

import (
	"time"

	"github.com/shopspring/decimal"

	"pricing-backend/internal/core"
)

// ConfigResult mirrors the current algorithm tunables.
type ConfigResult struct {
	TargetOccupancy decimal.Decimal `json:"targetOccupancy"`
	Sensitivity     decimal.Decimal `json:"sensitivity"`
	WindowDays      int             `json:"windowDays"`
}

// RecommendationRunResult reports one engine run. PersistFailures counts
// results whose append to the recommendation log failed; those results are
// still present in Recommendations.
type RecommendationRunResult struct {
	Currency        string                `json:"currency"`
	Products        int                   `json:"products"`
	Recommendations []core.Recommendation `json:"recommendations"`
	PersistFailures int                   `json:"persistFailures"`
}

// ProductGroup is one product with its multi-currency price map.
type ProductGroup struct {
	ProductID   string                     `json:"productId"`
	RoomName    string                     `json:"roomName"`
	Beds        *int                       `json:"beds,omitempty"`
	RoomType    string                     `json:"roomType,omitempty"`
	ArrivalDate *time.Time                 `json:"arrivalDate,omitempty"`
	Prices      map[string]decimal.Decimal `json:"prices"`
}

// BuildingGroup is one building with its (filtered) products.
type BuildingGroup struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Products []ProductGroup `json:"products"`
}

// ConfirmBatchResult is the per-item outcome of a batch confirmation.
type ConfirmBatchResult struct {
	ProductID string `json:"productId"`
	Status    string `json:"status"` // "success" or "failed"
	Error     string `json:"error,omitempty"`
}

// DateRange is a closed [Min, Max] date interval; nil ends mean no data.
type DateRange struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}

// BuildingRef is the id/name pair used by filter dropdowns.
type BuildingRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FiltersResult lists the distinct attribute values available for filtering.
type FiltersResult struct {
	Buildings        []BuildingRef `json:"buildings"`
	RoomTypes        []string      `json:"roomTypes"`
	Beds             []int         `json:"beds"`
	ArrivalDateRange DateRange     `json:"arrivalDateRange"`
	BuildingTypes    []string      `json:"buildingTypes"`
	Regions          []string      `json:"regions"`
	ProductGroups    []string      `json:"productGroups"`
}

// OccupancyResult is the naive bookings/products occupancy proxy for one
// building and date range.
type OccupancyResult struct {
	BuildingID   string          `json:"buildingId"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      time.Time       `json:"endDate"`
	BookingCount int             `json:"bookingCount"`
	Products     int             `json:"products"`
	Occupancy    decimal.Decimal `json:"occupancy"`
}

// IngestResult reports one CSV ingestion job run.
type IngestResult struct {
	Job     string `json:"job"`
	Rows    int    `json:"rows"`
	Skipped int    `json:"skipped"`
}
