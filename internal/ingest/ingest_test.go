package ingest_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/core"
	"pricing-backend/internal/ingest"
)

// The stubs embed the service interfaces so only the methods ingestion
// actually calls need implementing.

type stubProducts struct {
	core.ProductService
	upserts []core.Product
}

func (s *stubProducts) Upsert(ctx context.Context, p core.Product) error {
	s.upserts = append(s.upserts, p)
	return nil
}

type stubBookings struct {
	core.BookingService
	inserts []core.Booking
}

func (s *stubBookings) Insert(ctx context.Context, b core.Booking) error {
	s.inserts = append(s.inserts, b)
	return nil
}

type stubPrices struct {
	core.PriceService
	upserts []core.Price
}

func (s *stubPrices) Upsert(ctx context.Context, p core.Price) error {
	s.upserts = append(s.upserts, p)
	return nil
}

type stubBuildings struct {
	core.BuildingService
	upserts []core.Building
}

func (s *stubBuildings) Upsert(ctx context.Context, b core.Building) error {
	s.upserts = append(s.upserts, b)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestRunner() (*ingest.Runner, *stubProducts, *stubBookings, *stubPrices, *stubBuildings) {
	products := &stubProducts{}
	bookings := &stubBookings{}
	prices := &stubPrices{}
	buildings := &stubBuildings{}
	runner := ingest.NewRunner(products, bookings, prices, buildings, "", quietLogger())
	return runner, products, bookings, prices, buildings
}

func TestIngestProducts(t *testing.T) {
	csv := `id,buildingId,roomName,arrivalDate,noOfBeds,roomType,grade,privatePool
p1,b1,Sea View,2026-07-01,2,suite,4,true
p2,b1,Garden,,,,,
`
	runner, products, _, _, _ := newTestRunner()
	rows, skipped, err := runner.IngestProducts(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("IngestProducts: %v", err)
	}
	if rows != 2 || skipped != 0 {
		t.Fatalf("expected 2 rows 0 skipped, got %d/%d", rows, skipped)
	}

	p1 := products.upserts[0]
	if p1.ID != "p1" || p1.BuildingID != "b1" || p1.RoomType != "suite" {
		t.Errorf("unexpected product %+v", p1)
	}
	if p1.Beds == nil || *p1.Beds != 2 {
		t.Errorf("expected 2 beds, got %v", p1.Beds)
	}
	if p1.PrivatePool == nil || !*p1.PrivatePool {
		t.Errorf("expected private pool true, got %v", p1.PrivatePool)
	}
	if p1.ArrivalDate == nil || p1.ArrivalDate.Format("2006-01-02") != "2026-07-01" {
		t.Errorf("unexpected arrival date %v", p1.ArrivalDate)
	}

	// Optional attributes stay nil when the column is empty.
	p2 := products.upserts[1]
	if p2.Beds != nil || p2.ArrivalDate != nil || p2.PrivatePool != nil {
		t.Errorf("expected nil optional attributes, got %+v", p2)
	}
}

func TestIngestProducts_SkipsBadRows(t *testing.T) {
	csv := `id,buildingId,arrivalDate,noOfBeds
p1,b1,2026-07-01,2
,b1,2026-07-01,2
p3,b1,not-a-date,2
p4,b1,2026-07-01,two
p5,b1,2026-07-02,3
`
	runner, products, _, _, _ := newTestRunner()
	rows, skipped, err := runner.IngestProducts(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("IngestProducts: %v", err)
	}
	if rows != 2 || skipped != 3 {
		t.Errorf("expected 2 rows 3 skipped, got %d/%d", rows, skipped)
	}
	if len(products.upserts) != 2 {
		t.Errorf("expected only valid rows upserted, got %d", len(products.upserts))
	}
}

func TestIngestBookings(t *testing.T) {
	csv := `id,productId,arrivalDate,nights,pricePaid
k1,p1,2026-07-01,7,129.50
k2,p1,,,-5
k3,p2,2026-07-02,3,80
`
	runner, _, bookings, _, _ := newTestRunner()
	rows, skipped, err := runner.IngestBookings(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("IngestBookings: %v", err)
	}
	if rows != 2 || skipped != 1 {
		t.Errorf("expected 2 rows 1 skipped (negative price), got %d/%d", rows, skipped)
	}
	if !bookings.inserts[0].PricePaid.Equal(decimal.RequireFromString("129.50")) {
		t.Errorf("unexpected price paid %s", bookings.inserts[0].PricePaid)
	}
	if bookings.inserts[0].Nights != 7 {
		t.Errorf("expected 7 nights, got %d", bookings.inserts[0].Nights)
	}
}

func TestIngestPrices(t *testing.T) {
	csv := `productId,currency,value,lastUpdated
p1,usd,199.99,2026-01-15T10:00:00Z
p1,EUR,185.00,
,,100,
`
	runner, _, _, prices, _ := newTestRunner()
	rows, skipped, err := runner.IngestPrices(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("IngestPrices: %v", err)
	}
	if rows != 2 || skipped != 1 {
		t.Errorf("expected 2 rows 1 skipped, got %d/%d", rows, skipped)
	}
	if prices.upserts[0].Currency != "USD" {
		t.Errorf("currency must be upper-cased, got %s", prices.upserts[0].Currency)
	}
	if prices.upserts[1].LastUpdated.IsZero() {
		t.Error("missing lastUpdated must default to now, not zero")
	}
}

func TestIngestBuildings_HeaderVariants(t *testing.T) {
	// snake_case headers must resolve to the same fields.
	csv := `id,name,type,Region
b1,Alpine Lodge,hotel,Alps
`
	runner, _, _, _, buildings := newTestRunner()
	rows, skipped, err := runner.IngestBuildings(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("IngestBuildings: %v", err)
	}
	if rows != 1 || skipped != 0 {
		t.Errorf("expected 1 row, got %d/%d", rows, skipped)
	}
	if buildings.upserts[0].Region != "Alps" {
		t.Errorf("unexpected region %s", buildings.upserts[0].Region)
	}
}

func TestRun_UnknownJob(t *testing.T) {
	runner, _, _, _, _ := newTestRunner()
	_, _, err := runner.Run(context.Background(), "nonsense")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
