package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/config"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"
)

// ----- fakes -----

type fakeUoW struct{}

func (fakeUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// capturingTripRepo records the predicates it is queried with and serves a
// canned result set.
type capturingTripRepo struct {
	seq        int
	trips      map[string]trip.Offer
	searchPred geoquery.Predicate
	scanPred   geoquery.Predicate
	scanCap    int
	scanResult []trip.Offer
}

func (r *capturingTripRepo) Create(_ context.Context, t *trip.Offer) error {
	r.seq++
	t.ID = fmt.Sprintf("trip-%d", r.seq)
	if r.trips == nil {
		r.trips = map[string]trip.Offer{}
	}
	r.trips[t.ID] = *t
	return nil
}

func (r *capturingTripRepo) GetByID(_ context.Context, id string) (*trip.Offer, error) {
	t, ok := r.trips[id]
	if !ok {
		return nil, fmt.Errorf("%w: trip %s", fault.ErrNotFound, id)
	}
	cp := t
	return &cp, nil
}

func (r *capturingTripRepo) Search(_ context.Context, pred geoquery.Predicate, offset, limit int) ([]trip.Offer, int, error) {
	r.searchPred = pred
	return r.scanResult, len(r.scanResult), nil
}

func (r *capturingTripRepo) SearchAll(_ context.Context, pred geoquery.Predicate, cap int) ([]trip.Offer, error) {
	r.scanPred = pred
	r.scanCap = cap
	return r.scanResult, nil
}

func (r *capturingTripRepo) GetByIDs(_ context.Context, ids []string) ([]trip.Offer, error) {
	var out []trip.Offer
	for _, id := range ids {
		if t, ok := r.trips[id]; ok && t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *capturingTripRepo) Deactivate(context.Context, string) error { return nil }

type capturingLeadRepo struct {
	searchPred geoquery.Predicate
	result     []lead.Lead
}

func (r *capturingLeadRepo) Create(_ context.Context, l *lead.Lead) error {
	l.ID = "lead-1"
	return nil
}

func (r *capturingLeadRepo) GetByID(_ context.Context, id string) (*lead.Lead, error) {
	return nil, fmt.Errorf("%w: lead %s", fault.ErrNotFound, id)
}

func (r *capturingLeadRepo) Search(_ context.Context, pred geoquery.Predicate, offset, limit int) ([]lead.Lead, int, error) {
	r.searchPred = pred
	return r.result, len(r.result), nil
}

func (r *capturingLeadRepo) Deactivate(context.Context, string) error { return nil }

type fakeLocator struct {
	added   map[string]geo.Coord
	nearby  []string
	failing bool
}

func (l *fakeLocator) Add(_ context.Context, tripID string, lon, lat float64) error {
	if l.added == nil {
		l.added = map[string]geo.Coord{}
	}
	l.added[tripID] = geo.Coord{Lon: lon, Lat: lat}
	return nil
}

func (l *fakeLocator) Remove(context.Context, string) error { return nil }

func (l *fakeLocator) Nearby(_ context.Context, lon, lat, radiusMeters float64, limit int) ([]string, error) {
	if l.failing {
		return nil, errors.New("locator down")
	}
	return l.nearby, nil
}

type stubDirectory struct{}

func (stubDirectory) Resolve(_ context.Context, userID string) (*user.Profile, error) {
	return &user.Profile{ID: userID}, nil
}

// ----- fixture -----

var (
	cochinPort = geo.Coord{Lon: 76.26, Lat: 9.97}
	alappuzha  = geo.Coord{Lon: 76.34, Lat: 9.50}
	thrissur   = geo.Coord{Lon: 76.21, Lat: 10.52}
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Matching.DefaultRadiusMeters = 5000
	cfg.Matching.MaxPageSize = 50
	cfg.Matching.RefineScanCap = 500
	return cfg
}

func newListing(t *testing.T, trips *capturingTripRepo, leads *capturingLeadRepo, locator ports.TripLocator) ports.ListingService {
	t.Helper()
	return NewListingService(logger.New("listing-test"), testConfig(), fakeUoW{}, trips, leads, stubDirectory{}, locator)
}

func offerNear(id string, start, dest geo.Coord) trip.Offer {
	return trip.Offer{
		ID:          id,
		CreatedBy:   "drv-1",
		Start:       geo.Point{Coord: start},
		Destination: geo.Point{Coord: dest},
		IsActive:    true,
	}
}

// rootCircleLeaf digs the first WithinCircle out of a predicate tree.
func rootCircleLeaf(t *testing.T, pred geoquery.Predicate) geoquery.WithinCircle {
	t.Helper()
	switch p := pred.(type) {
	case geoquery.WithinCircle:
		return p
	case geoquery.Or:
		return rootCircleLeaf(t, p.Preds[0])
	case geoquery.And:
		return rootCircleLeaf(t, p.Preds[0])
	default:
		t.Fatalf("no WithinCircle leaf in %T", pred)
		return geoquery.WithinCircle{}
	}
}

// ----- tests -----

func TestSearchTrips_CurrentLocationWins(t *testing.T) {
	trips := &capturingTripRepo{}
	svc := newListing(t, trips, &capturingLeadRepo{}, nil)

	_, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{
		Pickup:          &cochinPort,
		Dropoff:         &alappuzha,
		CurrentLocation: &thrissur,
		Page:            ports.Page{Page: 1, Limit: 10},
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}

	leaf := rootCircleLeaf(t, trips.searchPred)
	if leaf.Center != thrissur {
		t.Fatalf("predicate centered at %+v, want current location %+v", leaf.Center, thrissur)
	}
	if trips.scanPred != nil {
		t.Fatal("current-location search must not take the refine path")
	}
}

func TestSearchTrips_DefaultRadiusApplied(t *testing.T) {
	trips := &capturingTripRepo{}
	svc := newListing(t, trips, &capturingLeadRepo{}, nil)

	_, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{
		Pickup: &cochinPort,
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}
	leaf := rootCircleLeaf(t, trips.searchPred)
	if leaf.RadiusMeters != 5000 {
		t.Fatalf("radius = %v, want configured default 5000", leaf.RadiusMeters)
	}
}

func TestSearchTrips_RequireBothIntersectsStoreSide(t *testing.T) {
	trips := &capturingTripRepo{}
	svc := newListing(t, trips, &capturingLeadRepo{}, nil)

	_, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{
		Pickup:  &cochinPort,
		Dropoff: &alappuzha,
		Mode:    ports.ModeRequireBoth,
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}

	and, ok := trips.searchPred.(geoquery.And)
	if !ok {
		t.Fatalf("expected And predicate at store, got %T", trips.searchPred)
	}
	if len(and.Preds) != 2 {
		t.Fatalf("expected 2 conjuncts, got %d", len(and.Preds))
	}
	if trips.scanPred != nil {
		t.Fatal("requireBoth must not take the refine path")
	}
}

func TestSearchTrips_RefineByDropoffPreservesOrder(t *testing.T) {
	// A and C end near the dropoff, B ends far away. Stable creation
	// order A, B, C must survive as A, C after refinement.
	trips := &capturingTripRepo{scanResult: []trip.Offer{
		offerNear("A", cochinPort, alappuzha),
		offerNear("B", cochinPort, thrissur),
		offerNear("C", cochinPort, alappuzha),
	}}
	svc := newListing(t, trips, &capturingLeadRepo{}, nil)

	page, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{
		Pickup:  &cochinPort,
		Dropoff: &alappuzha,
		Mode:    ports.ModeRefineByDropoff,
		Page:    ports.Page{Page: 1, Limit: 10},
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}

	if trips.scanCap != 500 {
		t.Fatalf("scan cap = %d, want configured 500", trips.scanCap)
	}
	if page.Meta.Total != 2 {
		t.Fatalf("total = %d, want 2", page.Meta.Total)
	}
	if len(page.Items) != 2 || page.Items[0].ID != "A" || page.Items[1].ID != "C" {
		t.Fatalf("unexpected refined page: %+v", page.Items)
	}
}

func TestSearchTrips_RefinePaginatesRefinedSet(t *testing.T) {
	trips := &capturingTripRepo{scanResult: []trip.Offer{
		offerNear("A", cochinPort, alappuzha),
		offerNear("B", cochinPort, thrissur),
		offerNear("C", cochinPort, alappuzha),
	}}
	svc := newListing(t, trips, &capturingLeadRepo{}, nil)

	page, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{
		Pickup:  &cochinPort,
		Dropoff: &alappuzha,
		Page:    ports.Page{Page: 2, Limit: 1},
	})
	if err != nil {
		t.Fatalf("SearchTrips: %v", err)
	}
	if page.Meta.Total != 2 || page.Meta.TotalPages != 2 {
		t.Fatalf("meta = %+v, want total 2 over 2 pages", page.Meta)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "C" {
		t.Fatalf("page 2 = %+v, want [C]", page.Items)
	}
	if !page.Meta.HasPrev || page.Meta.HasNext {
		t.Fatalf("meta nav = %+v, want prev only", page.Meta)
	}
}

func TestSearchTrips_NoPointsRejected(t *testing.T) {
	svc := newListing(t, &capturingTripRepo{}, &capturingLeadRepo{}, nil)

	_, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want fault.ErrValidation", err)
	}
}

func TestSearchTrips_BadCoordinateRejected(t *testing.T) {
	svc := newListing(t, &capturingTripRepo{}, &capturingLeadRepo{}, nil)

	bad := geo.Coord{Lon: 200, Lat: 9.9}
	_, err := svc.SearchTrips(context.Background(), ports.TripSearchInput{Pickup: &bad})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want fault.ErrValidation", err)
	}
}

func TestSearchLeads_PickupOnly(t *testing.T) {
	leads := &capturingLeadRepo{}
	svc := NewListingService(logger.New("listing-test"), testConfig(), fakeUoW{}, &capturingTripRepo{}, leads, stubDirectory{}, nil)

	_, err := svc.SearchLeads(context.Background(), ports.LeadSearchInput{Pickup: &cochinPort})
	if err != nil {
		t.Fatalf("SearchLeads: %v", err)
	}
	or, ok := leads.searchPred.(geoquery.Or)
	if !ok || len(or.Preds) != 2 {
		t.Fatalf("expected 2-leaf Or lead predicate, got %T", leads.searchPred)
	}
}

func TestCreateTrip_DriverOnlyAndIndexed(t *testing.T) {
	trips := &capturingTripRepo{}
	locator := &fakeLocator{}
	svc := newListing(t, trips, &capturingLeadRepo{}, locator)

	customer := user.Actor{ID: "cust-1", Role: user.RoleCustomer}
	_, err := svc.CreateTrip(context.Background(), customer, ports.CreateTripInput{})
	if !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("customer create err = %v, want fault.ErrForbidden", err)
	}

	driver := user.Actor{ID: "drv-1", Role: user.RoleDriver}
	view, err := svc.CreateTrip(context.Background(), driver, ports.CreateTripInput{
		Start:       geo.Point{Address: "Cochin Port", Coord: cochinPort},
		Destination: geo.Point{Address: "Alappuzha", Coord: alappuzha},
	})
	if err != nil {
		t.Fatalf("CreateTrip: %v", err)
	}
	if view.CreatedBy != "drv-1" || view.AssignedDriverID != "drv-1" {
		t.Fatalf("ownership not set: %+v", view)
	}
	if got, ok := locator.added[view.ID]; !ok || got != cochinPort {
		t.Fatalf("start point not mirrored into locator: %+v", locator.added)
	}
}

func TestCreateLead_CustomerOnly(t *testing.T) {
	svc := newListing(t, &capturingTripRepo{}, &capturingLeadRepo{}, nil)

	driver := user.Actor{ID: "drv-1", Role: user.RoleDriver}
	_, err := svc.CreateLead(context.Background(), driver, ports.CreateLeadInput{})
	if !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("driver create err = %v, want fault.ErrForbidden", err)
	}

	customer := user.Actor{ID: "cust-1", Role: user.RoleCustomer}
	view, err := svc.CreateLead(context.Background(), customer, ports.CreateLeadInput{
		Pickup:  geo.Point{Coord: cochinPort},
		Dropoff: geo.Point{Coord: alappuzha},
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if view.CustomerID != "cust-1" {
		t.Fatalf("ownership not set: %+v", view)
	}
}

func TestNearbyTrips_ServedFromLocatorInOrder(t *testing.T) {
	trips := &capturingTripRepo{trips: map[string]trip.Offer{
		"t1": offerNear("t1", cochinPort, alappuzha),
		"t2": offerNear("t2", cochinPort, thrissur),
	}}
	locator := &fakeLocator{nearby: []string{"t2", "t1"}}
	svc := newListing(t, trips, &capturingLeadRepo{}, locator)

	views, err := svc.NearbyTrips(context.Background(), cochinPort, 3000, 10)
	if err != nil {
		t.Fatalf("NearbyTrips: %v", err)
	}
	if len(views) != 2 || views[0].ID != "t2" || views[1].ID != "t1" {
		t.Fatalf("locator order not preserved: %+v", views)
	}
	if trips.searchPred != nil {
		t.Fatal("locator hit must not query the store predicate path")
	}
}

func TestNearbyTrips_FallsBackWhenLocatorFails(t *testing.T) {
	trips := &capturingTripRepo{scanResult: []trip.Offer{offerNear("t1", cochinPort, alappuzha)}}
	locator := &fakeLocator{failing: true}
	svc := newListing(t, trips, &capturingLeadRepo{}, locator)

	views, err := svc.NearbyTrips(context.Background(), cochinPort, 3000, 10)
	if err != nil {
		t.Fatalf("NearbyTrips: %v", err)
	}
	if len(views) != 1 || views[0].ID != "t1" {
		t.Fatalf("fallback result = %+v", views)
	}

	wc, ok := trips.searchPred.(geoquery.WithinCircle)
	if !ok {
		t.Fatalf("expected bare start-point circle, got %T", trips.searchPred)
	}
	if wc.Field != geoquery.FieldTripStart {
		t.Fatalf("fallback field = %s, want %s", wc.Field, geoquery.FieldTripStart)
	}
}

func TestNearbyTrips_InvalidCenterRejected(t *testing.T) {
	svc := newListing(t, &capturingTripRepo{}, &capturingLeadRepo{}, nil)

	_, err := svc.NearbyTrips(context.Background(), geo.Coord{Lon: 0, Lat: 99}, 3000, 10)
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("err = %v, want fault.ErrValidation", err)
	}
}
