package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/core"
	"pricing-backend/internal/ingest"
)

// Services bundles everything the application layer orchestrates.
type Services struct {
	Config          *core.AlgorithmConfig
	Engine          *core.PricingEngine
	Confirmations   core.ConfirmationService
	Users           core.UserService
	Products        core.ProductService
	Buildings       core.BuildingService
	Bookings        core.BookingService
	Prices          core.PriceService
	Recommendations core.RecommendationStore
	Sync            core.SyncService
	Ingest          *ingest.Runner
	Log             *logrus.Logger
}

type applicationService struct {
	Services
}

// New constructs the ApplicationService over the given services.
func New(s Services) ApplicationService {
	return &applicationService{Services: s}
}

func (a *applicationService) GetPricingConfig(ctx context.Context) ConfigResult {
	snap := a.Config.Snapshot()
	return ConfigResult{
		TargetOccupancy: snap.TargetOccupancy,
		Sensitivity:     snap.Sensitivity,
		WindowDays:      snap.WindowDays,
	}
}

func (a *applicationService) UpdatePricingConfig(ctx context.Context, req UpdateConfigRequest) (*ConfigResult, error) {
	if req.UserID == "" {
		return nil, &core.AuthorizationError{Msg: "X-User-Id header is required to update pricing configuration"}
	}
	user, err := a.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role != core.RoleAdmin {
		return nil, &core.AuthorizationError{Msg: fmt.Sprintf(
			"only ADMIN may update pricing configuration, user %s has role %s", user.ID, user.Role)}
	}

	if req.TargetOccupancy != nil && req.TargetOccupancy.IsNegative() {
		return nil, &core.ValidationError{Msg: "target occupancy cannot be negative"}
	}
	if req.WindowDays != nil && *req.WindowDays <= 0 {
		return nil, &core.ValidationError{Msg: "window days must be positive"}
	}

	a.Config.Update(req.TargetOccupancy, req.Sensitivity, req.WindowDays)
	a.Log.WithField("user_id", user.ID).Info("pricing configuration updated")

	result := a.GetPricingConfig(ctx)
	return &result, nil
}

func (a *applicationService) RunRecommendations(ctx context.Context, currency string) (*RecommendationRunResult, error) {
	if currency == "" {
		currency = core.FallbackCurrency
	}
	currency = strings.ToUpper(currency)

	products, err := a.Products.List(ctx, core.ProductFilter{})
	if err != nil {
		return nil, err
	}
	bookings, err := a.Bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := a.Prices.SnapshotForCurrency(ctx, currency)
	if err != nil {
		return nil, err
	}

	recs := a.Engine.Recommend(ctx, products, bookings, prices, a.Config.Snapshot())

	failures := 0
	for _, r := range recs {
		if r.PersistErr != nil {
			failures++
		}
	}
	a.Log.WithFields(logrus.Fields{
		"currency":         currency,
		"products":         len(products),
		"recommendations":  len(recs),
		"persist_failures": failures,
	}).Info("recommendation run finished")

	return &RecommendationRunResult{
		Currency:        currency,
		Products:        len(products),
		Recommendations: recs,
		PersistFailures: failures,
	}, nil
}

func (a *applicationService) ListRecommendations(ctx context.Context, productID string) ([]core.PriceRecommendation, error) {
	return a.Recommendations.ListForProduct(ctx, productID)
}

func (a *applicationService) GetGroupedRecommendations(ctx context.Context, req GroupedQuery) ([]BuildingGroup, error) {
	var buildings []core.Building
	var err error
	if len(req.BuildingIDs) > 0 {
		buildings, err = a.Buildings.ListByIDs(ctx, req.BuildingIDs)
	} else {
		buildings, err = a.Buildings.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	groups := make([]BuildingGroup, 0, len(buildings))
	for _, b := range buildings {
		products, err := a.Products.List(ctx, core.ProductFilter{
			BuildingIDs: []string{b.ID},
			RoomType:    req.RoomType,
			Beds:        req.Beds,
			ArrivalFrom: req.ArrivalFrom,
			ArrivalTo:   req.ArrivalTo,
		})
		if err != nil {
			return nil, err
		}

		group := BuildingGroup{ID: b.ID, Name: b.Name, Products: make([]ProductGroup, 0, len(products))}
		for _, p := range products {
			prices, err := a.Prices.ByProduct(ctx, p.ID)
			if err != nil {
				return nil, err
			}
			priceMap := make(map[string]decimal.Decimal, len(prices))
			for _, pr := range prices {
				priceMap[pr.Currency] = pr.Value
			}
			group.Products = append(group.Products, ProductGroup{
				ProductID:   p.ID,
				RoomName:    p.RoomName,
				Beds:        p.Beds,
				RoomType:    p.RoomType,
				ArrivalDate: p.ArrivalDate,
				Prices:      priceMap,
			})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (a *applicationService) BookingsForCluster(ctx context.Context, req ClusterQuery) ([]core.Booking, error) {
	target := core.ClusterKey{RoomType: req.RoomType}
	if req.ArrivalDate != nil {
		target.ArrivalDate = req.ArrivalDate.Format("2006-01-02")
	}
	if req.Beds != nil {
		target.Beds = strconv.Itoa(*req.Beds)
	}
	if req.Grade != nil {
		target.Grade = strconv.Itoa(*req.Grade)
	}
	if req.PrivatePool != nil {
		target.PrivatePool = strconv.FormatBool(*req.PrivatePool)
	}

	products, err := a.Products.List(ctx, core.ProductFilter{})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range products {
		if core.ClusterKeyOf(p) == target {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return []core.Booking{}, nil
	}
	bookings, err := a.Bookings.ListByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []core.Booking{}
	}
	return bookings, nil
}

func (a *applicationService) Confirm(ctx context.Context, req ConfirmRequest) (*core.PriceConfirmation, error) {
	if req.ProductID == "" {
		return nil, &core.ValidationError{Msg: "product id is required"}
	}
	action, err := core.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = core.FallbackCurrency
	}
	return a.Confirmations.Confirm(ctx, req.ProductID, action, req.Value, currency, req.UserID)
}

func (a *applicationService) ConfirmBatch(ctx context.Context, reqs []ConfirmRequest) []ConfirmBatchResult {
	results := make([]ConfirmBatchResult, 0, len(reqs))
	for _, req := range reqs {
		item := ConfirmBatchResult{ProductID: req.ProductID, Status: "success"}
		if _, err := a.Confirm(ctx, req); err != nil {
			item.Status = "failed"
			item.Error = err.Error()
			a.Log.WithFields(logrus.Fields{
				"product_id": req.ProductID,
				"user_id":    req.UserID,
			}).WithError(err).Warn("batch confirmation item failed")
		}
		results = append(results, item)
	}
	return results
}

func (a *applicationService) ListPrices(ctx context.Context, filter core.PriceListFilter) ([]core.Price, error) {
	return a.Prices.List(ctx, filter)
}

func (a *applicationService) PricesByProduct(ctx context.Context, productID string) ([]core.Price, error) {
	return a.Prices.ByProduct(ctx, productID)
}

func (a *applicationService) ListUsers(ctx context.Context) ([]core.User, error) {
	return a.Users.List(ctx)
}

func (a *applicationService) GetUser(ctx context.Context, id string) (*core.User, error) {
	return a.Users.GetByID(ctx, id)
}

func (a *applicationService) CreateUser(ctx context.Context, u core.User) (*core.User, error) {
	return a.Users.Create(ctx, u)
}

func (a *applicationService) UpdateUser(ctx context.Context, u core.User) (*core.User, error) {
	return a.Users.Update(ctx, u)
}

func (a *applicationService) DeleteUser(ctx context.Context, id string) error {
	return a.Users.Delete(ctx, id)
}

func (a *applicationService) GetFilters(ctx context.Context) (*FiltersResult, error) {
	buildings, err := a.Buildings.List(ctx)
	if err != nil {
		return nil, err
	}
	roomTypes, err := a.Products.DistinctRoomTypes(ctx)
	if err != nil {
		return nil, err
	}
	beds, err := a.Products.DistinctBeds(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := a.Products.DistinctProductGroups(ctx)
	if err != nil {
		return nil, err
	}
	min, max, err := a.Products.ArrivalDateRange(ctx)
	if err != nil {
		return nil, err
	}

	result := &FiltersResult{
		Buildings:        make([]BuildingRef, 0, len(buildings)),
		RoomTypes:        roomTypes,
		Beds:             beds,
		ArrivalDateRange: DateRange{Min: min, Max: max},
		ProductGroups:    groups,
	}
	typeSeen := map[string]bool{}
	regionSeen := map[string]bool{}
	for _, b := range buildings {
		result.Buildings = append(result.Buildings, BuildingRef{ID: b.ID, Name: b.Name})
		if b.Type != "" && !typeSeen[b.Type] {
			typeSeen[b.Type] = true
			result.BuildingTypes = append(result.BuildingTypes, b.Type)
		}
		if b.Region != "" && !regionSeen[b.Region] {
			regionSeen[b.Region] = true
			result.Regions = append(result.Regions, b.Region)
		}
	}
	return result, nil
}

func (a *applicationService) OccupancyMetrics(ctx context.Context, req OccupancyQuery) (*OccupancyResult, error) {
	if _, err := a.Buildings.GetByID(ctx, req.BuildingID); err != nil {
		return nil, err
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, &core.ValidationError{Msg: "end date must not be before start date"}
	}

	products, err := a.Products.List(ctx, core.ProductFilter{BuildingIDs: []string{req.BuildingID}})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	var count int
	if len(ids) > 0 {
		bookings, err := a.Bookings.ListByProducts(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, b := range bookings {
			if b.ArrivalDate == nil {
				continue
			}
			if b.ArrivalDate.Before(req.StartDate) || b.ArrivalDate.After(req.EndDate) {
				continue
			}
			count++
		}
	}

	occupancy := decimal.Zero
	if len(products) > 0 {
		occupancy = decimal.NewFromInt(int64(count)).
			DivRound(decimal.NewFromInt(int64(len(products))), 8).Round(4)
	}
	return &OccupancyResult{
		BuildingID:   req.BuildingID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		BookingCount: count,
		Products:     len(products),
		Occupancy:    occupancy,
	}, nil
}

func (a *applicationService) RunIngestJob(ctx context.Context, job string) (*IngestResult, error) {
	rows, skipped, err := a.Ingest.Run(ctx, job)
	if err != nil {
		return nil, err
	}
	a.Log.WithFields(logrus.Fields{
		"job":     job,
		"rows":    rows,
		"skipped": skipped,
	}).Info("ingest job finished")
	return &IngestResult{Job: job, Rows: rows, Skipped: skipped}, nil
}

func (a *applicationService) SyncConfirmations(ctx context.Context) (*core.SyncReport, error) {
	return a.Sync.PushConfirmed(ctx)
}
