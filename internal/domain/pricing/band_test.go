package pricing

import (
	"testing"
)

func TestParseTable(t *testing.T) {
	got, err := ParseTable("  lead_tokens ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != TableLeadTokens {
		t.Fatalf("got %s, want %s", got, TableLeadTokens)
	}

	if _, err := ParseTable("ROUTE_TOKENS"); err != ErrInvalidTable {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func TestNewBand_Validation(t *testing.T) {
	cases := []struct {
		name    string
		from    float64
		to      float64
		cost    int64
		wantErr error
	}{
		{"valid", 0, 5, 10, nil},
		{"zero cost ok", 0, 5, 0, nil},
		{"negative from", -1, 5, 10, ErrNegativeFrom},
		{"inverted", 5, 5, 10, ErrIntervalInverted},
		{"reversed", 10, 5, 10, ErrIntervalInverted},
		{"negative cost", 0, 5, -1, ErrNegativeCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBand(TableLeadTokens, tc.from, tc.to, tc.cost)
			if err != tc.wantErr {
				t.Fatalf("NewBand() err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && !b.IsActive {
				t.Fatal("new band must be active")
			}
		})
	}

	if _, err := NewBand(Table("NOPE"), 0, 5, 10); err != ErrInvalidTable {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
}

func TestBandOverlaps(t *testing.T) {
	base := &Band{FromKm: 10, ToKm: 20}

	cases := []struct {
		name     string
		from, to float64
		want     bool
	}{
		{"start inside", 15, 25, true},
		{"end inside", 5, 15, true},
		{"contains", 5, 25, true},
		{"contained", 12, 18, true},
		{"identical", 10, 20, true},
		{"adjacent below", 0, 10, false},
		{"adjacent above", 20, 30, false},
		{"disjoint", 30, 40, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other := &Band{FromKm: tc.from, ToKm: tc.to}
			if got := base.Overlaps(other); got != tc.want {
				t.Fatalf("Overlaps(%v,%v) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
			// overlap is symmetric
			if got := other.Overlaps(base); got != tc.want {
				t.Fatalf("Overlaps reversed = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBandCovers_HalfOpenBoundary(t *testing.T) {
	b := &Band{FromKm: 10, ToKm: 20}

	if !b.Covers(10) {
		t.Fatal("lower bound is inclusive")
	}
	if b.Covers(20) {
		t.Fatal("upper bound is exclusive")
	}
	if !b.Covers(19.999) {
		t.Fatal("just under the upper bound must be covered")
	}
	if b.Covers(9.999) {
		t.Fatal("just under the lower bound must not be covered")
	}
}
