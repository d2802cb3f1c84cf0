package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/core"
)

// memRecStore is an in-memory RecommendationStore for engine tests.
type memRecStore struct {
	rows      []core.PriceRecommendation
	appendErr error
	latestErr error
}

func (s *memRecStore) Append(ctx context.Context, rec *core.PriceRecommendation) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	rec.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, *rec)
	return nil
}

func (s *memRecStore) LatestForProduct(ctx context.Context, productID string) (*core.PriceRecommendation, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].ProductID == productID {
			row := s.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (s *memRecStore) ListForProduct(ctx context.Context, productID string) ([]core.PriceRecommendation, error) {
	var out []core.PriceRecommendation
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].ProductID == productID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func defaultSnapshot() core.ConfigSnapshot {
	return core.ConfigSnapshot{
		TargetOccupancy: dec("0.6"),
		Sensitivity:     dec("0.5"),
		WindowDays:      30,
	}
}

func recFor(t *testing.T, recs []core.Recommendation, productID string) core.Recommendation {
	t.Helper()
	for _, r := range recs {
		if r.ProductID == productID {
			return r
		}
	}
	t.Fatalf("no recommendation for product %s", productID)
	return core.Recommendation{}
}

func TestRecommend_ClusterWithBookings(t *testing.T) {
	arrival := time.Now().AddDate(0, 0, 7)
	recent := time.Now().AddDate(0, 0, -1)

	// Two identical products in one cluster, three recent bookings paying
	// 100, 110 and 120.
	products := []core.Product{
		{ID: "p1", BuildingID: "b1", RoomType: "suite", Beds: intPtr(2), ArrivalDate: &arrival},
		{ID: "p2", BuildingID: "b1", RoomType: "suite", Beds: intPtr(2), ArrivalDate: &arrival},
	}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
		{ID: "k2", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("110")},
		{ID: "k3", ProductID: "p2", ArrivalDate: &recent, PricePaid: dec("120")},
	}
	prices := map[string]core.PriceInfo{
		"p1": {Currency: "EUR", Value: dec("150")},
	}

	store := &memRecStore{}
	engine := core.NewPricingEngine(store, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, prices, defaultSnapshot())

	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}

	// occupancy = 3 / (2 products * 30 days) = 0.05
	// factor    = 1 + 0.5 * (0.05 - 0.6) = 0.725
	// avg paid  = 110.00, raw = 110 * 0.725 = 79.75, inside [77.00, 143.00]
	r1 := recFor(t, recs, "p1")
	if !r1.Occupancy.Equal(dec("0.05")) {
		t.Errorf("expected occupancy 0.05, got %s", r1.Occupancy)
	}
	if !r1.Factor.Equal(dec("0.725")) {
		t.Errorf("expected factor 0.725, got %s", r1.Factor)
	}
	if r1.AvgPaid == nil || !r1.AvgPaid.Equal(dec("110.00")) {
		t.Errorf("expected avg paid 110.00, got %v", r1.AvgPaid)
	}
	if r1.Value == nil || !r1.Value.Equal(dec("79.75")) {
		t.Errorf("expected recommended 79.75, got %v", r1.Value)
	}
	if r1.Currency != "EUR" {
		t.Errorf("expected currency EUR from current price, got %s", r1.Currency)
	}

	// p2 shares the cluster so it gets the same value; it has no current
	// price so the fallback currency applies.
	r2 := recFor(t, recs, "p2")
	if r2.Value == nil || !r2.Value.Equal(dec("79.75")) {
		t.Errorf("expected recommended 79.75 for p2, got %v", r2.Value)
	}
	if r2.Currency != "USD" {
		t.Errorf("expected fallback currency USD, got %s", r2.Currency)
	}

	// Both results were persisted with status NEW.
	if len(store.rows) != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", len(store.rows))
	}
	for _, row := range store.rows {
		if row.Status != core.RecommendationStatusNew {
			t.Errorf("expected status NEW, got %s", row.Status)
		}
	}
}

func TestRecommend_NoBookingsFallsBackToCurrentPrice(t *testing.T) {
	products := []core.Product{
		{ID: "p1", BuildingID: "b1", RoomType: "villa"},
		{ID: "p2", BuildingID: "b1", RoomType: "villa"},
	}
	prices := map[string]core.PriceInfo{
		"p1": {Currency: "EUR", Value: dec("500.00")},
	}

	engine := core.NewPricingEngine(&memRecStore{}, testLogger())
	recs := engine.Recommend(context.Background(), products, nil, prices, defaultSnapshot())

	r1 := recFor(t, recs, "p1")
	if r1.Value == nil || !r1.Value.Equal(dec("500.00")) {
		t.Errorf("expected fallback to current price 500.00, got %v", r1.Value)
	}
	if r1.AvgPaid != nil {
		t.Errorf("expected nil avg paid, got %v", r1.AvgPaid)
	}

	// No bookings and no current price: a null recommendation is still
	// produced and recorded.
	r2 := recFor(t, recs, "p2")
	if r2.Value != nil {
		t.Errorf("expected nil recommendation, got %v", r2.Value)
	}
	if r2.Currency != "USD" {
		t.Errorf("expected fallback currency USD, got %s", r2.Currency)
	}
}

func TestRecommend_ClampsToMaxIncrease(t *testing.T) {
	recent := time.Now().AddDate(0, 0, 0)
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
		{ID: "k2", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
		{ID: "k3", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
	}

	// windowDays 1, one product, three bookings: raw occupancy 3 clamps to 2.
	// factor = 1 + 1 * (2 - 0) = 3, raw price 300 clamps to 130.00.
	cfg := core.ConfigSnapshot{
		TargetOccupancy: decimal.Zero,
		Sensitivity:     decimal.NewFromInt(1),
		WindowDays:      1,
	}
	engine := core.NewPricingEngine(nil, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, cfg)

	r := recFor(t, recs, "p1")
	if !r.Occupancy.Equal(dec("2")) {
		t.Errorf("expected occupancy clamped to 2, got %s", r.Occupancy)
	}
	if r.Value == nil || !r.Value.Equal(dec("130.00")) {
		t.Errorf("expected clamp to 130.00, got %v", r.Value)
	}
}

func TestRecommend_FactorFloorAndMinMargin(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -1)
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
	}

	// factor = 1 + 10 * (occ - 5) is far below zero; floors at 0.5. Raw
	// price 50 then clamps up to the 70.00 minimum margin.
	cfg := core.ConfigSnapshot{
		TargetOccupancy: decimal.NewFromInt(5),
		Sensitivity:     decimal.NewFromInt(10),
		WindowDays:      30,
	}
	engine := core.NewPricingEngine(nil, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, cfg)

	r := recFor(t, recs, "p1")
	if !r.Factor.Equal(dec("0.5")) {
		t.Errorf("expected factor floored at 0.5, got %s", r.Factor)
	}
	if r.Value == nil || !r.Value.Equal(dec("70.00")) {
		t.Errorf("expected min margin clamp to 70.00, got %v", r.Value)
	}
}

func TestRecommend_SmoothsAgainstPreviousRecommendation(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -1)
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("110")},
		{ID: "k2", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("110")},
	}

	prev := dec("100.00")
	store := &memRecStore{rows: []core.PriceRecommendation{{
		ID: 1, ProductID: "p1", Currency: "USD", RecommendedValue: &prev,
		RecommendedAt: time.Now().Add(-time.Hour), Status: core.RecommendationStatusNew,
	}}}

	// occupancy = 2/30 = 0.0667, factor = 1 + 0.5*(0.0667-0.6) = 0.73335
	// raw = 110 * 0.73335 = 80.67, clamped [77.00, 143.00] -> 80.67
	// smoothed = 0.5*100.00 + 0.5*80.67 = 90.34 (rounded)
	engine := core.NewPricingEngine(store, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, defaultSnapshot())

	r := recFor(t, recs, "p1")
	if r.Value == nil {
		t.Fatal("expected a recommendation")
	}
	// The smoothed value must lie strictly between the previous value and
	// the raw value.
	raw := dec("80.67")
	if !r.Value.GreaterThan(raw) || !r.Value.LessThan(prev) {
		t.Errorf("expected smoothed value between %s and %s, got %s", raw, prev, r.Value)
	}
	if !r.Value.Equal(dec("90.34")) {
		t.Errorf("expected smoothed value 90.34, got %s", r.Value)
	}
}

func TestRecommend_BookingWithoutArrivalDateAlwaysCounts(t *testing.T) {
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	old := time.Now().AddDate(-1, 0, 0)
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", PricePaid: dec("100")},               // no arrival date
		{ID: "k2", ProductID: "p1", ArrivalDate: &old, PricePaid: dec("900")}, // outside window
	}

	engine := core.NewPricingEngine(nil, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, defaultSnapshot())

	r := recFor(t, recs, "p1")
	// Only the dateless booking is in the window, so avg paid is its price.
	if r.AvgPaid == nil || !r.AvgPaid.Equal(dec("100.00")) {
		t.Errorf("expected avg paid 100.00 from dateless booking only, got %v", r.AvgPaid)
	}
}

func TestRecommend_WindowIncludesEdgeDay(t *testing.T) {
	products := []core.Product{{ID: "p1", RoomType: "suite"}}

	// Arrival dates are calendar days at midnight UTC. A booking arriving
	// exactly windowDays ago is inside the window; one day earlier is out.
	y, m, d := time.Now().UTC().AddDate(0, 0, -30).Date()
	edge := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	outside := edge.AddDate(0, 0, -1)

	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &edge, PricePaid: dec("100")},
		{ID: "k2", ProductID: "p1", ArrivalDate: &outside, PricePaid: dec("900")},
	}

	engine := core.NewPricingEngine(nil, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, defaultSnapshot())

	r := recFor(t, recs, "p1")
	if r.AvgPaid == nil || !r.AvgPaid.Equal(dec("100.00")) {
		t.Errorf("expected avg paid 100.00 from the edge-day booking alone, got %v", r.AvgPaid)
	}
}

func TestRecommend_PersistFailureDoesNotAbortBatch(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -1)
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("100")},
	}

	store := &memRecStore{appendErr: errors.New("disk full")}
	engine := core.NewPricingEngine(store, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, defaultSnapshot())

	r := recFor(t, recs, "p1")
	if r.PersistErr == nil {
		t.Error("expected PersistErr to be set")
	}
	if r.Value == nil {
		t.Error("expected in-memory recommendation despite persist failure")
	}
}

func TestRecommend_LatestLookupFailureSkipsSmoothing(t *testing.T) {
	recent := time.Now().AddDate(0, 0, -1)
	products := []core.Product{{ID: "p1", RoomType: "suite"}}
	bookings := []core.Booking{
		{ID: "k1", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("110")},
		{ID: "k2", ProductID: "p1", ArrivalDate: &recent, PricePaid: dec("110")},
	}

	store := &memRecStore{latestErr: errors.New("connection reset")}
	engine := core.NewPricingEngine(store, testLogger())
	recs := engine.Recommend(context.Background(), products, bookings, nil, defaultSnapshot())

	r := recFor(t, recs, "p1")
	if r.Value == nil || !r.Value.Equal(dec("80.67")) {
		t.Errorf("expected unsmoothed value 80.67, got %v", r.Value)
	}
}
