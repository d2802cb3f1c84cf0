package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the closed set of user roles known to the pricing backend.
// Untrusted role strings are normalized once at the boundary via ParseRole.
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleRegionalManager Role = "REGIONAL_MANAGER"
	RolePricingManager  Role = "PRICING_MANAGER"
	RoleOther           Role = "OTHER"
)

// ParseRole maps a raw role string to a Role, case-insensitively.
// Unknown roles collapse to RoleOther.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleAdmin):
		return RoleAdmin
	case string(RoleRegionalManager):
		return RoleRegionalManager
	case string(RolePricingManager):
		return RolePricingManager
	default:
		return RoleOther
	}
}

// Action is a confirmation decision on a price recommendation.
type Action string

const (
	ActionAccept   Action = "ACCEPT"
	ActionReject   Action = "REJECT"
	ActionOverride Action = "OVERRIDE"
)

// ParseAction normalizes a raw action string case-insensitively.
// Unknown actions are a validation failure, not a silent default.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ActionAccept):
		return ActionAccept, nil
	case string(ActionReject):
		return ActionReject, nil
	case string(ActionOverride):
		return ActionOverride, nil
	default:
		return "", &ValidationError{Msg: "unknown action " + s}
	}
}

// Product is one bookable inventory item (a room on a given arrival date).
// Immutable once created; ingestion mutates only by upsert on ID.
type Product struct {
	ID           string     `json:"id"`
	BuildingID   string     `json:"building_id"`
	RoomName     string     `json:"room_name"`
	ArrivalDate  *time.Time `json:"arrival_date,omitempty"`
	Beds         *int       `json:"beds,omitempty"`
	RoomType     string     `json:"room_type,omitempty"`
	Grade        *int       `json:"grade,omitempty"`
	PrivatePool  *bool      `json:"private_pool,omitempty"`
	ProductGroup *string    `json:"product_group,omitempty"`
}

// Booking is a historical reservation against a product. Never mutated.
type Booking struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ArrivalDate *time.Time      `json:"arrival_date,omitempty"`
	Nights      int             `json:"nights"`
	PricePaid   decimal.Decimal `json:"price_paid"`
}

// Price is the current listed price of a product in one currency.
// (product_id, currency) is the composite key; multi-currency by design.
type Price struct {
	ProductID   string          `json:"product_id"`
	Currency    string          `json:"currency"`
	Value       decimal.Decimal `json:"value"`
	LastUpdated time.Time       `json:"last_updated"`
}

// PriceInfo is the engine's view of a product's current price in the
// currency selected for a recommendation run.
type PriceInfo struct {
	Currency string
	Value    decimal.Decimal
}

// Building owns products. Region drives regional-manager authorization.
type Building struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Region string `json:"region,omitempty"`
}

// User is an acting user. Region is set only for region-restricted roles.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Region string `json:"region,omitempty"`
}

// RecommendationStatusNew marks a freshly produced, unreviewed recommendation.
const RecommendationStatusNew = "NEW"

// PriceRecommendation is one row of the append-only recommendation log.
// A nil RecommendedValue means no recommendation could be produced.
// "Latest" per product is determined by RecommendedAt.
type PriceRecommendation struct {
	ID               int64            `json:"id"`
	ProductID        string           `json:"product_id"`
	Currency         string           `json:"currency"`
	RecommendedValue *decimal.Decimal `json:"recommended_value,omitempty"`
	RecommendedAt    time.Time        `json:"recommended_at"`
	Status           string           `json:"status"`
}

// PriceConfirmation is one row of the append-only confirmation log.
// ConfirmedValue is required for ACCEPT/OVERRIDE and nil for REJECT.
type PriceConfirmation struct {
	ID             int64            `json:"id"`
	ProductID      string           `json:"product_id"`
	Action         Action           `json:"action"`
	ConfirmedValue *decimal.Decimal `json:"confirmed_value,omitempty"`
	Currency       string           `json:"currency"`
	UserID         string           `json:"user_id"`
	ConfirmedAt    time.Time        `json:"confirmed_at"`
	Synced         bool             `json:"synced"`
}

// Recommendation is the engine's per-product result, including the
// diagnostic values (occupancy, average paid, factor) behind it.
type Recommendation struct {
	ProductID string           `json:"product_id"`
	Currency  string           `json:"currency"`
	Value     *decimal.Decimal `json:"recommended_value,omitempty"`
	Cluster   ClusterKey       `json:"cluster"`
	Occupancy decimal.Decimal  `json:"occupancy"`
	AvgPaid   *decimal.Decimal `json:"avg_paid,omitempty"`
	Factor    decimal.Decimal  `json:"factor"`
	// PersistErr reports a failed append to the recommendation store.
	// The in-memory result is still valid; callers decide how to surface it.
	PersistErr error `json:"-"`
}
