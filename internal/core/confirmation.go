package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Override bound: an OVERRIDE value must stay within ±30% of the most recent
// recommendation for the product, when one exists.
var (
	overrideLowerFactor = decimal.NewFromFloat(0.7)
	overrideUpperFactor = decimal.NewFromFloat(1.3)
)

// UserGetter resolves an acting user.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// ProductGetter resolves a product for region authorization.
type ProductGetter interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// BuildingGetter resolves a product's owning building.
type BuildingGetter interface {
	GetByID(ctx context.Context, id string) (*Building, error)
}

// ConfirmationStore is the append-only confirmation log.
type ConfirmationStore interface {
	Append(ctx context.Context, pc *PriceConfirmation) (*PriceConfirmation, error)
	ListUnsynced(ctx context.Context) ([]PriceConfirmation, error)
	MarkSynced(ctx context.Context, id int64) error
}

// ConfirmationService records human accept/reject/override decisions on price
// recommendations, enforcing authorization and override bounds.
type ConfirmationService interface {
	// Confirm validates and durably appends one confirmation. All-or-nothing:
	// on error nothing is recorded. value is required for ACCEPT and OVERRIDE
	// and ignored for REJECT.
	Confirm(ctx context.Context, productID string, action Action, value *decimal.Decimal,
		currency, userID string) (*PriceConfirmation, error)
}

type confirmationService struct {
	users           UserGetter
	products        ProductGetter
	buildings       BuildingGetter
	recommendations RecommendationStore
	store           ConfirmationStore
}

// NewConfirmationService wires the confirmation workflow.
func NewConfirmationService(users UserGetter, products ProductGetter, buildings BuildingGetter,
	recommendations RecommendationStore, store ConfirmationStore) ConfirmationService {
	return &confirmationService{
		users:           users,
		products:        products,
		buildings:       buildings,
		recommendations: recommendations,
		store:           store,
	}
}

func (s *confirmationService) Confirm(ctx context.Context, productID string, action Action,
	value *decimal.Decimal, currency, userID string) (*PriceConfirmation, error) {

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Region restriction applies to regional managers only. Other roles skip
	// the product/building lookups entirely.
	if user.Role == RoleRegionalManager {
		product, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		building, err := s.buildings.GetByID(ctx, product.BuildingID)
		if err != nil {
			return nil, err
		}
		if user.Region != "" && building.Region != "" && !strings.EqualFold(user.Region, building.Region) {
			return nil, &AuthorizationError{Msg: fmt.Sprintf(
				"regional manager can only confirm prices in their assigned region: user region %s, building region %s",
				user.Region, building.Region)}
		}
	}

	switch action {
	case ActionOverride:
		if value == nil {
			return nil, &ValidationError{Msg: "confirmed value is required for OVERRIDE"}
		}
		if err := s.checkOverrideBounds(ctx, productID, *value); err != nil {
			return nil, err
		}
	case ActionAccept:
		if value == nil {
			return nil, &ValidationError{Msg: "confirmed value is required for ACCEPT"}
		}
	case ActionReject:
		// A rejection carries no price.
		value = nil
	default:
		return nil, &ValidationError{Msg: "unknown action " + string(action)}
	}

	pc := &PriceConfirmation{
		ProductID:      productID,
		Action:         action,
		ConfirmedValue: value,
		Currency:       currency,
		UserID:         userID,
		ConfirmedAt:    time.Now(),
		Synced:         false,
	}
	saved, err := s.store.Append(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("record confirmation for product %s: %w", productID, err)
	}
	return saved, nil
}

// checkOverrideBounds rejects override values outside ±30% of the most
// recent recommendation. No recommendation (or a null-valued one) means no
// bound applies. The lookup tolerates slight staleness relative to concurrent
// engine runs; this is an advisory check, not a ledger constraint.
func (s *confirmationService) checkOverrideBounds(ctx context.Context, productID string, value decimal.Decimal) error {
	last, err := s.recommendations.LatestForProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("look up last recommendation for product %s: %w", productID, err)
	}
	if last == nil || last.RecommendedValue == nil {
		return nil
	}
	min := last.RecommendedValue.Mul(overrideLowerFactor)
	max := last.RecommendedValue.Mul(overrideUpperFactor)
	if value.LessThan(min) || value.GreaterThan(max) {
		return &ValidationError{Msg: fmt.Sprintf(
			"override out of allowed bounds (±30%% of recommended): value %s, allowed [%s, %s]",
			value.StringFixed(2), min.StringFixed(2), max.StringFixed(2))}
	}
	return nil
}
