package pricing

import (
	"errors"
	"strings"
	"time"
)

// Table identifies one of the four independent distance-band tables.
type Table string

const (
	TableLeadTokens Table = "LEAD_TOKENS"
	TableTripTokens Table = "TRIP_TOKENS"
	TableLeadPrice  Table = "LEAD_PRICE"
	TableTripPrice  Table = "TRIP_PRICE"
)

var ErrInvalidTable = errors.New("invalid distance band table")

// ParseTable normalizes and validates a table name.
func ParseTable(s string) (Table, error) {
	t := Table(strings.ToUpper(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", ErrInvalidTable
}

// Valid reports whether the table is a known constant.
func (t Table) Valid() bool {
	switch t {
	case TableLeadTokens, TableTripTokens, TableLeadPrice, TableTripPrice:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Table.
func (t Table) String() string {
	return string(t)
}

// Band maps the half-open distance interval [FromKm, ToKm) to a fixed cost.
// Within one table no two active bands may overlap.
type Band struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Table  Table
	FromKm float64
	ToKm   float64
	Cost   int64

	IsActive bool
}

var (
	ErrIntervalInverted = errors.New("toKm must be greater than fromKm")
	ErrNegativeFrom     = errors.New("fromKm must not be negative")
	ErrNegativeCost     = errors.New("cost must not be negative")
	ErrOverlap          = errors.New("distance band overlaps an active band")
)

// NewBand validates interval well-formedness. Overlap against sibling bands
// is the repository's write-time concern.
func NewBand(table Table, fromKm, toKm float64, cost int64) (*Band, error) {
	if !table.Valid() {
		return nil, ErrInvalidTable
	}
	if fromKm < 0 {
		return nil, ErrNegativeFrom
	}
	if toKm <= fromKm {
		return nil, ErrIntervalInverted
	}
	if cost < 0 {
		return nil, ErrNegativeCost
	}

	now := time.Now().UTC()
	return &Band{
		CreatedAt: now,
		UpdatedAt: now,
		Table:     table,
		FromKm:    fromKm,
		ToKm:      toKm,
		Cost:      cost,
		IsActive:  true,
	}, nil
}

// Overlaps reports whether two half-open intervals intersect. The three
// overlap shapes (start inside, end inside, full containment) all reduce to
// this single comparison.
func (b *Band) Overlaps(other *Band) bool {
	return b.FromKm < other.ToKm && other.FromKm < b.ToKm
}

// Covers reports whether the distance falls inside [FromKm, ToKm).
func (b *Band) Covers(distanceKm float64) bool {
	return b.FromKm <= distanceKm && distanceKm < b.ToKm
}
