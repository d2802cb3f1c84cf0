// Package ingest loads tabular CSV exports of products, bookings, prices
// and buildings into the database. Rows that fail to parse are skipped and
// counted; a bad row never aborts the job.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/core"
)

// Job names accepted by Runner.Run.
const (
	JobProduct  = "product"
	JobBooking  = "booking"
	JobPrice    = "price"
	JobBuilding = "building"
)

// Runner executes CSV ingestion jobs against files in dataDir
// (products.csv, bookings.csv, prices.csv, buildings.csv).
type Runner struct {
	products  core.ProductService
	bookings  core.BookingService
	prices    core.PriceService
	buildings core.BuildingService
	dataDir   string
	log       *logrus.Logger
}

// NewRunner wires an ingestion runner over the given stores.
func NewRunner(products core.ProductService, bookings core.BookingService,
	prices core.PriceService, buildings core.BuildingService, dataDir string, log *logrus.Logger) *Runner {
	return &Runner{
		products:  products,
		bookings:  bookings,
		prices:    prices,
		buildings: buildings,
		dataDir:   dataDir,
		log:       log,
	}
}

var jobFiles = map[string]string{
	JobProduct:  "products.csv",
	JobBooking:  "bookings.csv",
	JobPrice:    "prices.csv",
	JobBuilding: "buildings.csv",
}

// Run executes one named job. Returns rows ingested and rows skipped.
func (r *Runner) Run(ctx context.Context, job string) (int, int, error) {
	file, ok := jobFiles[job]
	if !ok {
		return 0, 0, &core.ValidationError{Msg: "unknown ingest job " + job}
	}
	f, err := os.Open(filepath.Join(r.dataDir, file))
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()

	switch job {
	case JobProduct:
		return r.IngestProducts(ctx, f)
	case JobBooking:
		return r.IngestBookings(ctx, f)
	case JobPrice:
		return r.IngestPrices(ctx, f)
	default:
		return r.IngestBuildings(ctx, f)
	}
}

// IngestProducts upserts products by id.
func (r *Runner) IngestProducts(ctx context.Context, src io.Reader) (int, int, error) {
	return r.forEachRow(src, "products", func(row record) error {
		id := row.get("id")
		if id == "" {
			return &core.ValidationError{Msg: "product row missing id"}
		}
		arrival, err := parseDatePtr(row.get("arrivalDate"))
		if err != nil {
			return err
		}
		beds, err := parseIntPtr(row.get("noOfBeds"))
		if err != nil {
			return err
		}
		grade, err := parseIntPtr(row.get("grade"))
		if err != nil {
			return err
		}
		pool, err := parseBoolPtr(row.get("privatePool"))
		if err != nil {
			return err
		}
		var group *string
		if g := row.get("productGroup"); g != "" {
			group = &g
		}
		return r.products.Upsert(ctx, core.Product{
			ID:           id,
			BuildingID:   row.get("buildingId"),
			RoomName:     row.get("roomName"),
			ArrivalDate:  arrival,
			Beds:         beds,
			RoomType:     row.get("roomType"),
			Grade:        grade,
			PrivatePool:  pool,
			ProductGroup: group,
		})
	})
}

// IngestBookings inserts bookings; existing booking ids are left untouched.
func (r *Runner) IngestBookings(ctx context.Context, src io.Reader) (int, int, error) {
	return r.forEachRow(src, "bookings", func(row record) error {
		id := row.get("id")
		if id == "" {
			return &core.ValidationError{Msg: "booking row missing id"}
		}
		arrival, err := parseDatePtr(row.get("arrivalDate"))
		if err != nil {
			return err
		}
		nights, err := parseIntPtr(row.get("nights"))
		if err != nil {
			return err
		}
		paid, err := parseDecimal(row.get("pricePaid"))
		if err != nil {
			return err
		}
		if paid.IsNegative() {
			return &core.ValidationError{Msg: "price paid cannot be negative"}
		}
		b := core.Booking{
			ID:          id,
			ProductID:   row.get("productId"),
			ArrivalDate: arrival,
			PricePaid:   paid,
		}
		if nights != nil {
			b.Nights = *nights
		}
		return r.bookings.Insert(ctx, b)
	})
}

// IngestPrices upserts prices by (productId, currency).
func (r *Runner) IngestPrices(ctx context.Context, src io.Reader) (int, int, error) {
	return r.forEachRow(src, "prices", func(row record) error {
		productID := row.get("productId")
		currency := strings.ToUpper(row.get("currency"))
		if productID == "" || currency == "" {
			return &core.ValidationError{Msg: "price row missing productId or currency"}
		}
		value, err := parseDecimal(row.get("value"))
		if err != nil {
			return err
		}
		updated := time.Now()
		if raw := row.get("lastUpdated"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return &core.ValidationError{Msg: "unparseable lastUpdated " + raw}
			}
			updated = t
		}
		return r.prices.Upsert(ctx, core.Price{
			ProductID:   productID,
			Currency:    currency,
			Value:       value,
			LastUpdated: updated,
		})
	})
}

// IngestBuildings upserts buildings by id.
func (r *Runner) IngestBuildings(ctx context.Context, src io.Reader) (int, int, error) {
	return r.forEachRow(src, "buildings", func(row record) error {
		id := row.get("id")
		if id == "" {
			return &core.ValidationError{Msg: "building row missing id"}
		}
		return r.buildings.Upsert(ctx, core.Building{
			ID:     id,
			Name:   row.get("name"),
			Type:   row.get("type"),
			Region: row.get("region"),
		})
	})
}

// record is one CSV row with header-based field access. Header names are
// matched ignoring case and underscores, so "buildingId" and "building_id"
// both work.
type record struct {
	index  map[string]int
	fields []string
}

func (r record) get(name string) string {
	i, ok := r.index[normalizeHeader(name)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
}

func (r *Runner) forEachRow(src io.Reader, what string, apply func(record) error) (int, int, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read %s header: %w", what, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}

	rows, skipped := 0, 0
	for line := 2; ; line++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			r.log.WithFields(logrus.Fields{"file": what, "line": line}).WithError(err).
				Warn("skipping malformed CSV row")
			continue
		}
		if err := apply(record{index: index, fields: fields}); err != nil {
			if core.IsValidation(err) {
				skipped++
				r.log.WithFields(logrus.Fields{"file": what, "line": line}).WithError(err).
					Warn("skipping invalid row")
				continue
			}
			return rows, skipped, fmt.Errorf("ingest %s row at line %d: %w", what, line, err)
		}
		rows++
	}
	return rows, skipped, nil
}

func parseDatePtr(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, &core.ValidationError{Msg: "unparseable date " + s}
	}
	return &t, nil
}

func parseIntPtr(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, &core.ValidationError{Msg: "unparseable integer " + s}
	}
	return &n, nil
}

func parseBoolPtr(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	switch strings.ToLower(s) {
	case "true", "1", "yes", "y":
		b := true
		return &b, nil
	case "false", "0", "no", "n":
		b := false
		return &b, nil
	default:
		return nil, &core.ValidationError{Msg: "unparseable boolean " + s}
	}
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &core.ValidationError{Msg: "unparseable decimal " + s}
	}
	return d, nil
}
