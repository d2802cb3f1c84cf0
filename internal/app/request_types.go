package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdateConfigRequest is a partial tunables update. Nil fields are left
// unchanged. UserID comes from the X-User-Id header and must belong to an
// ADMIN user.
type UpdateConfigRequest struct {
	UserID          string
	TargetOccupancy *decimal.Decimal
	Sensitivity     *decimal.Decimal
	WindowDays      *int
}

// ConfirmRequest is one accept/reject/override decision. Action is the raw
// caller string, normalized once inside Confirm.
type ConfirmRequest struct {
	ProductID string
	Action    string
	Value     *decimal.Decimal
	Currency  string
	UserID    string
}

// GroupedQuery filters the building-grouped product listing. Empty
// BuildingIDs means all buildings.
type GroupedQuery struct {
	BuildingIDs []string
	RoomType    string
	Beds        *int
	ArrivalFrom *time.Time
	ArrivalTo   *time.Time
}

// ClusterQuery identifies one cluster by its pricing-relevant attributes.
type ClusterQuery struct {
	ArrivalDate *time.Time
	RoomType    string
	Beds        *int
	Grade       *int
	PrivatePool *bool
}

// OccupancyQuery scopes the occupancy metric to one building and arrival
// date range.
type OccupancyQuery struct {
	BuildingID string
	StartDate  time.Time
	EndDate    time.Time
}
