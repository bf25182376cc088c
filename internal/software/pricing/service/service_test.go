package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

type fakeUoW struct{}

func (fakeUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBandRepo struct {
	seq   int
	bands map[pricing.Table][]pricing.Band
}

func (r *fakeBandRepo) Upsert(_ context.Context, b *pricing.Band) error {
	for _, existing := range r.bands[b.Table] {
		if existing.ID != b.ID && existing.Overlaps(b) {
			return fmt.Errorf("%s [%g,%g): %w", b.Table, b.FromKm, b.ToKm, pricing.ErrOverlap)
		}
	}
	if b.ID == "" {
		r.seq++
		b.ID = fmt.Sprintf("band-%d", r.seq)
	}
	if r.bands == nil {
		r.bands = map[pricing.Table][]pricing.Band{}
	}
	r.bands[b.Table] = append(r.bands[b.Table], *b)
	return nil
}

func (r *fakeBandRepo) Lookup(_ context.Context, table pricing.Table, distanceKm float64) (int64, error) {
	for _, b := range r.bands[table] {
		if b.Covers(distanceKm) {
			return b.Cost, nil
		}
	}
	return 0, fmt.Errorf("%w: no band covers %.1f km", fault.ErrNotPriced, distanceKm)
}

func (r *fakeBandRepo) List(_ context.Context, table pricing.Table) ([]pricing.Band, error) {
	return r.bands[table], nil
}

func (r *fakeBandRepo) Archive(_ context.Context, table pricing.Table, id string) error {
	for i, b := range r.bands[table] {
		if b.ID == id {
			r.bands[table] = append(r.bands[table][:i], r.bands[table][i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: band %s", fault.ErrNotFound, id)
}

var (
	admin  = user.Actor{ID: "adm-1", Role: user.RoleAdmin}
	driver = user.Actor{ID: "drv-1", Role: user.RoleDriver}
)

func newPricing() (ports.PricingService, *fakeBandRepo) {
	repo := &fakeBandRepo{}
	return NewPricingService(logger.New("pricing-test"), fakeUoW{}, repo), repo
}

func TestUpsertBand_AdminOnly(t *testing.T) {
	svc, _ := newPricing()

	_, err := svc.UpsertBand(context.Background(), driver, ports.BandInput{
		Table: "lead_tokens", FromKm: 0, ToKm: 50, Cost: 25,
	})
	if !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("err = %v, want fault.ErrForbidden", err)
	}
}

func TestUpsertBand_CreatesAndLooksUp(t *testing.T) {
	svc, repo := newPricing()

	view, err := svc.UpsertBand(context.Background(), admin, ports.BandInput{
		Table: "lead_tokens", FromKm: 0, ToKm: 50, Cost: 25,
	})
	if err != nil {
		t.Fatalf("UpsertBand: %v", err)
	}
	if view.ID == "" || view.Table != "LEAD_TOKENS" || view.Cost != 25 {
		t.Fatalf("view = %+v", view)
	}

	cost, err := repo.Lookup(context.Background(), pricing.TableLeadTokens, 12)
	if err != nil || cost != 25 {
		t.Fatalf("Lookup = %d, %v, want 25", cost, err)
	}
}

func TestUpsertBand_RejectsBadInput(t *testing.T) {
	svc, _ := newPricing()

	cases := []struct {
		name string
		in   ports.BandInput
	}{
		{"unknown table", ports.BandInput{Table: "surge_tokens", FromKm: 0, ToKm: 50, Cost: 25}},
		{"inverted interval", ports.BandInput{Table: "lead_tokens", FromKm: 50, ToKm: 10, Cost: 25}},
		{"empty interval", ports.BandInput{Table: "lead_tokens", FromKm: 10, ToKm: 10, Cost: 25}},
		{"negative start", ports.BandInput{Table: "lead_tokens", FromKm: -1, ToKm: 10, Cost: 25}},
		{"negative cost", ports.BandInput{Table: "lead_tokens", FromKm: 0, ToKm: 10, Cost: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.UpsertBand(context.Background(), admin, tc.in); !errors.Is(err, fault.ErrValidation) {
				t.Fatalf("err = %v, want fault.ErrValidation", err)
			}
		})
	}
}

func TestUpsertBand_OverlapConflicts(t *testing.T) {
	svc, _ := newPricing()

	if _, err := svc.UpsertBand(context.Background(), admin, ports.BandInput{
		Table: "trip_tokens", FromKm: 0, ToKm: 50, Cost: 10,
	}); err != nil {
		t.Fatalf("seed band: %v", err)
	}

	_, err := svc.UpsertBand(context.Background(), admin, ports.BandInput{
		Table: "trip_tokens", FromKm: 40, ToKm: 80, Cost: 20,
	})
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want fault.ErrConflict", err)
	}

	// adjacent half-open intervals do not overlap
	if _, err := svc.UpsertBand(context.Background(), admin, ports.BandInput{
		Table: "trip_tokens", FromKm: 50, ToKm: 80, Cost: 20,
	}); err != nil {
		t.Fatalf("adjacent band: %v", err)
	}
}

func TestListBands(t *testing.T) {
	svc, _ := newPricing()

	for _, in := range []ports.BandInput{
		{Table: "lead_tokens", FromKm: 0, ToKm: 50, Cost: 25},
		{Table: "lead_tokens", FromKm: 50, ToKm: 100, Cost: 40},
	} {
		if _, err := svc.UpsertBand(context.Background(), admin, in); err != nil {
			t.Fatalf("seed band: %v", err)
		}
	}

	views, err := svc.ListBands(context.Background(), admin, "lead_tokens")
	if err != nil {
		t.Fatalf("ListBands: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d bands, want 2", len(views))
	}

	if _, err := svc.ListBands(context.Background(), admin, "nope"); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("bad table err = %v, want fault.ErrValidation", err)
	}
	if _, err := svc.ListBands(context.Background(), driver, "lead_tokens"); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("driver list err = %v, want fault.ErrForbidden", err)
	}
}

func TestArchiveBand(t *testing.T) {
	svc, repo := newPricing()

	view, err := svc.UpsertBand(context.Background(), admin, ports.BandInput{
		Table: "lead_tokens", FromKm: 0, ToKm: 50, Cost: 25,
	})
	if err != nil {
		t.Fatalf("seed band: %v", err)
	}

	if err := svc.ArchiveBand(context.Background(), admin, "lead_tokens", view.ID); err != nil {
		t.Fatalf("ArchiveBand: %v", err)
	}
	if _, err := repo.Lookup(context.Background(), pricing.TableLeadTokens, 12); !errors.Is(err, fault.ErrNotPriced) {
		t.Fatalf("archived band still prices: %v", err)
	}
}
