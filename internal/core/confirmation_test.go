package core_test

import (
	"context"
	"testing"
	"time"

	"pricing-backend/internal/core"
)

type fakeUsers struct {
	users map[string]core.User
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "user", ID: id}
	}
	return &u, nil
}

type fakeProducts struct {
	products map[string]core.Product
	calls    int
}

func (f *fakeProducts) GetByID(ctx context.Context, id string) (*core.Product, error) {
	f.calls++
	p, ok := f.products[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "product", ID: id}
	}
	return &p, nil
}

type fakeBuildings struct {
	buildings map[string]core.Building
	calls     int
}

func (f *fakeBuildings) GetByID(ctx context.Context, id string) (*core.Building, error) {
	f.calls++
	b, ok := f.buildings[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "building", ID: id}
	}
	return &b, nil
}

// trackingRecStore counts LatestForProduct calls so tests can assert which
// actions consult the recommendation log.
type trackingRecStore struct {
	latest      *core.PriceRecommendation
	latestCalls int
}

func (s *trackingRecStore) Append(ctx context.Context, rec *core.PriceRecommendation) error {
	return nil
}

func (s *trackingRecStore) LatestForProduct(ctx context.Context, productID string) (*core.PriceRecommendation, error) {
	s.latestCalls++
	return s.latest, nil
}

func (s *trackingRecStore) ListForProduct(ctx context.Context, productID string) ([]core.PriceRecommendation, error) {
	return nil, nil
}

type memConfStore struct {
	rows []core.PriceConfirmation
}

func (s *memConfStore) Append(ctx context.Context, pc *core.PriceConfirmation) (*core.PriceConfirmation, error) {
	pc.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, *pc)
	return pc, nil
}

func (s *memConfStore) ListUnsynced(ctx context.Context) ([]core.PriceConfirmation, error) {
	var out []core.PriceConfirmation
	for _, row := range s.rows {
		if !row.Synced {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *memConfStore) MarkSynced(ctx context.Context, id int64) error {
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Synced = true
			return nil
		}
	}
	return &core.NotFoundError{Entity: "confirmation", ID: "?"}
}

type confirmFixture struct {
	users     *fakeUsers
	products  *fakeProducts
	buildings *fakeBuildings
	recs      *trackingRecStore
	store     *memConfStore
	svc       core.ConfirmationService
}

func newConfirmFixture() *confirmFixture {
	f := &confirmFixture{
		users: &fakeUsers{users: map[string]core.User{
			"admin":   {ID: "admin", Name: "Ada", Role: core.RoleAdmin},
			"pricing": {ID: "pricing", Name: "Pia", Role: core.RolePricingManager},
			"rm-alps": {ID: "rm-alps", Name: "Rea", Role: core.RoleRegionalManager, Region: "Alps"},
		}},
		products: &fakeProducts{products: map[string]core.Product{
			"p1": {ID: "p1", BuildingID: "b-alps"},
			"p2": {ID: "p2", BuildingID: "b-coast"},
		}},
		buildings: &fakeBuildings{buildings: map[string]core.Building{
			"b-alps":  {ID: "b-alps", Region: "Alps"},
			"b-coast": {ID: "b-coast", Region: "Coast"},
		}},
		recs:  &trackingRecStore{},
		store: &memConfStore{},
	}
	f.svc = core.NewConfirmationService(f.users, f.products, f.buildings, f.recs, f.store)
	return f
}

func TestConfirm_AcceptRecordsUnsynced(t *testing.T) {
	f := newConfirmFixture()
	value := dec("120.00")

	saved, err := f.svc.Confirm(context.Background(), "p1", core.ActionAccept, &value, "USD", "admin")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected an assigned id")
	}
	if saved.Synced {
		t.Error("new confirmations must start unsynced")
	}
	if saved.ConfirmedValue == nil || !saved.ConfirmedValue.Equal(value) {
		t.Errorf("expected confirmed value 120.00, got %v", saved.ConfirmedValue)
	}
	if saved.ConfirmedAt.IsZero() || time.Since(saved.ConfirmedAt) > time.Minute {
		t.Error("expected a fresh confirmation timestamp")
	}

	// ACCEPT never consults the recommendation log.
	if f.recs.latestCalls != 0 {
		t.Errorf("ACCEPT queried the recommendation store %d times", f.recs.latestCalls)
	}
}

func TestConfirm_AcceptRequiresValue(t *testing.T) {
	f := newConfirmFixture()
	_, err := f.svc.Confirm(context.Background(), "p1", core.ActionAccept, nil, "USD", "admin")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(f.store.rows) != 0 {
		t.Error("failed confirmation must not be recorded")
	}
}

func TestConfirm_RejectDropsValue(t *testing.T) {
	f := newConfirmFixture()
	value := dec("120.00")

	saved, err := f.svc.Confirm(context.Background(), "p1", core.ActionReject, &value, "USD", "pricing")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if saved.ConfirmedValue != nil {
		t.Errorf("rejection must carry no value, got %v", saved.ConfirmedValue)
	}
	if f.recs.latestCalls != 0 {
		t.Errorf("REJECT queried the recommendation store %d times", f.recs.latestCalls)
	}
}

func TestConfirm_UnknownUser(t *testing.T) {
	f := newConfirmFixture()
	value := dec("100")
	_, err := f.svc.Confirm(context.Background(), "p1", core.ActionAccept, &value, "USD", "ghost")
	if !core.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestConfirm_RegionalManagerRegionCheck(t *testing.T) {
	f := newConfirmFixture()
	value := dec("100")

	// Own region: allowed.
	if _, err := f.svc.Confirm(context.Background(), "p1", core.ActionAccept, &value, "USD", "rm-alps"); err != nil {
		t.Fatalf("same-region confirm: %v", err)
	}

	// Foreign region: rejected, naming both regions.
	_, err := f.svc.Confirm(context.Background(), "p2", core.ActionAccept, &value, "USD", "rm-alps")
	if !core.IsAuthorization(err) {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestConfirm_NonRegionalRolesSkipBuildingLookup(t *testing.T) {
	f := newConfirmFixture()
	value := dec("100")

	for _, userID := range []string{"admin", "pricing"} {
		if _, err := f.svc.Confirm(context.Background(), "p1", core.ActionAccept, &value, "USD", userID); err != nil {
			t.Fatalf("confirm as %s: %v", userID, err)
		}
	}
	if f.products.calls != 0 || f.buildings.calls != 0 {
		t.Errorf("non-regional roles must skip product/building lookups, got %d/%d",
			f.products.calls, f.buildings.calls)
	}
}

func TestConfirm_OverrideBounds(t *testing.T) {
	f := newConfirmFixture()
	last := dec("100.00")
	f.recs.latest = &core.PriceRecommendation{
		ID: 1, ProductID: "p1", Currency: "USD", RecommendedValue: &last,
		RecommendedAt: time.Now(), Status: core.RecommendationStatusNew,
	}

	// 65 is below 70% of 100.
	low := dec("65")
	_, err := f.svc.Confirm(context.Background(), "p1", core.ActionOverride, &low, "USD", "admin")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error for 65, got %v", err)
	}

	// 135 is above 130% of 100.
	high := dec("135")
	_, err = f.svc.Confirm(context.Background(), "p1", core.ActionOverride, &high, "USD", "admin")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error for 135, got %v", err)
	}

	// 120 is inside the band.
	ok := dec("120")
	saved, err := f.svc.Confirm(context.Background(), "p1", core.ActionOverride, &ok, "USD", "admin")
	if err != nil {
		t.Fatalf("override 120: %v", err)
	}
	if saved.Action != core.ActionOverride {
		t.Errorf("expected OVERRIDE action, got %s", saved.Action)
	}
}

func TestConfirm_OverrideWithoutRecommendationIsUnbounded(t *testing.T) {
	f := newConfirmFixture()

	value := dec("9999")
	if _, err := f.svc.Confirm(context.Background(), "p1", core.ActionOverride, &value, "USD", "admin"); err != nil {
		t.Errorf("override without prior recommendation must pass, got %v", err)
	}

	// A recommendation with a null value imposes no bound either.
	f.recs.latest = &core.PriceRecommendation{ID: 2, ProductID: "p1", Currency: "USD"}
	if _, err := f.svc.Confirm(context.Background(), "p1", core.ActionOverride, &value, "USD", "admin"); err != nil {
		t.Errorf("override against null-valued recommendation must pass, got %v", err)
	}
}

func TestConfirm_OverrideRequiresValue(t *testing.T) {
	f := newConfirmFixture()
	_, err := f.svc.Confirm(context.Background(), "p1", core.ActionOverride, nil, "USD", "admin")
	if !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if f.recs.latestCalls != 0 {
		t.Error("missing value must fail before the bounds lookup")
	}
}

func TestParseAction(t *testing.T) {
	if a, err := core.ParseAction("accept"); err != nil || a != core.ActionAccept {
		t.Errorf("expected ACCEPT, got %v %v", a, err)
	}
	if _, err := core.ParseAction("shrug"); !core.IsValidation(err) {
		t.Errorf("expected validation error for unknown action, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	if core.ParseRole("admin") != core.RoleAdmin {
		t.Error("expected ADMIN")
	}
	if core.ParseRole("intern") != core.RoleOther {
		t.Error("unknown roles must collapse to OTHER")
	}
}
