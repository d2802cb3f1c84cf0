package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Price safety bounds and smoothing defaults. Recommended values are clamped
// to [avgPaid*minMargin, avgPaid*(1+maxIncreasePct)] and blended with the
// previous recommendation via a first-order EMA.
var (
	defaultMinMargin      = decimal.NewFromFloat(0.7)
	defaultMaxIncreasePct = decimal.NewFromFloat(0.3)
	defaultSmoothingAlpha = decimal.NewFromFloat(0.5)

	factorFloor  = decimal.NewFromFloat(0.5)
	occupancyCap = decimal.NewFromInt(2)
)

// FallbackCurrency is reported when a product has no current price but a
// currency must still be attached to the recommendation row.
const FallbackCurrency = "USD"

// RecommendationStore is the append-only log the engine writes to and the
// confirmation workflow reads the latest entry from. Implementations must
// treat "no recommendation yet" as (nil, nil), not an error.
type RecommendationStore interface {
	Append(ctx context.Context, rec *PriceRecommendation) error
	LatestForProduct(ctx context.Context, productID string) (*PriceRecommendation, error)
	ListForProduct(ctx context.Context, productID string) ([]PriceRecommendation, error)
}

// PricingEngine produces one price recommendation per input product by
// grouping comparable inventory into clusters and applying an occupancy-based
// linear adjustment to the average paid price, with safety clamps and EMA
// smoothing against the engine's own previous output.
type PricingEngine struct {
	minMargin      decimal.Decimal
	maxIncreasePct decimal.Decimal
	smoothingAlpha decimal.Decimal
	store          RecommendationStore // nil disables persistence and smoothing
	log            *logrus.Logger
}

// NewPricingEngine constructs an engine with the default bounds
// (minMargin 0.7, maxIncreasePct 0.3, smoothing alpha 0.5).
// store may be nil; results are then computed in memory only.
func NewPricingEngine(store RecommendationStore, log *logrus.Logger) *PricingEngine {
	return &PricingEngine{
		minMargin:      defaultMinMargin,
		maxIncreasePct: defaultMaxIncreasePct,
		smoothingAlpha: defaultSmoothingAlpha,
		store:          store,
		log:            log,
	}
}

// Recommend computes one Recommendation per product. Order of results is not
// significant. The config snapshot is taken by the caller so concurrent
// tunable updates cannot change a run mid-flight.
//
// Persistence failures never abort the batch: the in-memory result is still
// returned with PersistErr set, and the failure is logged so silent data loss
// is detectable.
func (e *PricingEngine) Recommend(ctx context.Context, products []Product, bookings []Booking,
	prices map[string]PriceInfo, cfg ConfigSnapshot) []Recommendation {

	if prices == nil {
		prices = map[string]PriceInfo{}
	}

	// Only bookings inside the lookback window count toward demand.
	// Bookings with no arrival date pass unconditionally. Arrival dates are
	// calendar days (stored at midnight UTC), so the window start must be a
	// midnight too or a booking arriving exactly windowDays ago would fall
	// just outside it.
	y, m, d := time.Now().UTC().AddDate(0, 0, -cfg.WindowDays).Date()
	windowStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	windowed := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.ArrivalDate == nil || !b.ArrivalDate.Before(windowStart) {
			windowed = append(windowed, b)
		}
	}

	clusters := GroupByCluster(products)

	bookingsByProduct := make(map[string][]Booking)
	for _, b := range windowed {
		bookingsByProduct[b.ProductID] = append(bookingsByProduct[b.ProductID], b)
	}

	recommendations := make([]Recommendation, 0, len(products))

	for key, clusterProducts := range clusters {
		var clusterBookings []Booking
		for _, p := range clusterProducts {
			clusterBookings = append(clusterBookings, bookingsByProduct[p.ID]...)
		}

		occupancy := computeOccupancy(len(clusterBookings), len(clusterProducts), cfg.WindowDays)
		avgPaid := computeAveragePaid(clusterBookings)

		// factor = 1 + sensitivity * (occupancy - targetOccupancy), floored
		// so a dead cluster can never drive the price negative or near zero.
		factor := decimal.NewFromInt(1).Add(cfg.Sensitivity.Mul(occupancy.Sub(cfg.TargetOccupancy)))
		if factor.LessThan(factorFloor) {
			factor = factorFloor
		}

		for _, p := range clusterProducts {
			currency := FallbackCurrency
			currentPrice, hasPrice := prices[p.ID]
			if hasPrice {
				currency = currentPrice.Currency
			}

			var recommended *decimal.Decimal
			if len(clusterBookings) == 0 || avgPaid == nil {
				// No demand signal: fall back to the current listed price,
				// or produce no recommendation at all.
				if hasPrice {
					v := currentPrice.Value
					recommended = &v
				}
			} else {
				raw := avgPaid.Mul(factor).Round(2)
				minPrice := avgPaid.Mul(e.minMargin).Round(2)
				maxPrice := avgPaid.Mul(decimal.NewFromInt(1).Add(e.maxIncreasePct)).Round(2)
				if raw.LessThan(minPrice) {
					raw = minPrice
				}
				if raw.GreaterThan(maxPrice) {
					raw = maxPrice
				}

				if prev := e.previousRecommendation(ctx, p.ID); prev != nil {
					raw = prev.Mul(decimal.NewFromInt(1).Sub(e.smoothingAlpha)).
						Add(raw.Mul(e.smoothingAlpha)).Round(2)
				}
				recommended = &raw
			}

			rec := Recommendation{
				ProductID: p.ID,
				Currency:  currency,
				Value:     recommended,
				Cluster:   key,
				Occupancy: occupancy,
				AvgPaid:   avgPaid,
				Factor:    factor,
			}

			if e.store != nil {
				row := &PriceRecommendation{
					ProductID:        p.ID,
					Currency:         currency,
					RecommendedValue: recommended,
					RecommendedAt:    time.Now(),
					Status:           RecommendationStatusNew,
				}
				if err := e.store.Append(ctx, row); err != nil {
					rec.PersistErr = err
					if e.log != nil {
						e.log.WithFields(logrus.Fields{
							"product_id": p.ID,
							"currency":   currency,
						}).WithError(err).Error("failed to persist price recommendation")
					}
				}
			}

			recommendations = append(recommendations, rec)
		}
	}

	return recommendations
}

// previousRecommendation returns the latest stored value for the product, or
// nil when there is none, the store is absent, or the lookup fails. A failed
// lookup only skips smoothing; it is logged, not fatal.
func (e *PricingEngine) previousRecommendation(ctx context.Context, productID string) *decimal.Decimal {
	if e.store == nil {
		return nil
	}
	prev, err := e.store.LatestForProduct(ctx, productID)
	if err != nil {
		if e.log != nil {
			e.log.WithField("product_id", productID).WithError(err).
				Warn("could not load previous recommendation, skipping smoothing")
		}
		return nil
	}
	if prev == nil {
		return nil
	}
	return prev.RecommendedValue
}

// computeOccupancy returns bookings / (products * windowDays), computed at
// 8 fractional digits, clamped to [0, 2], and rounded to 4 decimal places.
func computeOccupancy(bookingCount, productCount, windowDays int) decimal.Decimal {
	if productCount <= 0 || windowDays <= 0 {
		return decimal.Zero
	}
	occ := decimal.NewFromInt(int64(bookingCount)).
		DivRound(decimal.NewFromInt(int64(productCount)*int64(windowDays)), 8)
	if occ.IsNegative() {
		occ = decimal.Zero
	}
	if occ.GreaterThan(occupancyCap) {
		occ = occupancyCap
	}
	return occ.Round(4)
}

// computeAveragePaid returns the mean price paid rounded to 2 decimal
// places, or nil when there are no bookings.
func computeAveragePaid(bookings []Booking) *decimal.Decimal {
	if len(bookings) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, b := range bookings {
		sum = sum.Add(b.PricePaid)
	}
	avg := sum.DivRound(decimal.NewFromInt(int64(len(bookings))), 8).Round(2)
	return &avg
}
