// Package geoquery builds storage-agnostic spatial predicates. A predicate is
// a pure value: the Postgres adapter compiles it to PostGIS SQL, while tests
// and the second-pass listing filter evaluate it with the pure-geometry
// reference implementation in eval.go.
package geoquery

import (
	"errors"
	"fmt"

	"freight-connect/internal/domain/geo"
)

// DefaultRadiusMeters is used whenever a caller supplies no radius or a
// non-positive one.
const DefaultRadiusMeters = 5000.0

// CircleSegments is the vertex count of the polygon that approximates a
// geodesic circle for route-intersection queries.
const CircleSegments = 64

// Geometry field names shared by predicates, the SQL compiler and the
// in-memory evaluator.
const (
	FieldTripStart       = "trip_start"
	FieldTripDestination = "trip_destination"
	FieldTripVia         = "trip_via"
	FieldTripRoute       = "trip_route"
	FieldLeadPickup      = "lead_pickup"
	FieldLeadDropoff     = "lead_dropoff"
)

// Predicate is a composable spatial condition over stored geometries.
type Predicate interface {
	isPredicate()
}

// WithinCircle is true when any point of the named field lies within
// RadiusMeters of Center (point-in-circle on the sphere).
type WithinCircle struct {
	Field        string
	Center       geo.Coord
	RadiusMeters float64
}

// IntersectsPolygon is true when the named polyline field intersects the
// closed Ring.
type IntersectsPolygon struct {
	Field string
	Ring  geo.Polyline
}

// And is the conjunction of its parts.
type And struct {
	Preds []Predicate
}

// Or is the disjunction of its parts.
type Or struct {
	Preds []Predicate
}

func (WithinCircle) isPredicate()      {}
func (IntersectsPolygon) isPredicate() {}
func (And) isPredicate()               {}
func (Or) isPredicate()                {}

// Mode selects how Combine joins predicates.
type Mode string

const (
	ModeAny Mode = "any"
	ModeAll Mode = "all"
)

var ErrInvalidMode = errors.New("combine mode must be \"any\" or \"all\"")

// Combine joins predicates with the given mode. A single predicate is
// returned unwrapped.
func Combine(mode Mode, preds ...Predicate) (Predicate, error) {
	if len(preds) == 0 {
		return nil, errors.New("combine needs at least one predicate")
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	switch mode {
	case ModeAny:
		return Or{Preds: preds}, nil
	case ModeAll:
		return And{Preds: preds}, nil
	default:
		return nil, ErrInvalidMode
	}
}

// normalizeRadius applies the default rather than failing on a bad radius.
func normalizeRadius(radiusMeters float64) float64 {
	if radiusMeters <= 0 {
		return DefaultRadiusMeters
	}
	return radiusMeters
}

// TripMatchPredicate matches a trip offer whose start, destination, any via
// point, or route polyline falls within radiusMeters of center. The route
// leaf tests intersection against a 64-gon circle approximation because the
// store's circle predicate only supports point containment.
func TripMatchPredicate(center geo.Coord, radiusMeters float64) (Predicate, error) {
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("trip match center: %w", err)
	}
	r := normalizeRadius(radiusMeters)

	return Or{Preds: []Predicate{
		WithinCircle{Field: FieldTripStart, Center: center, RadiusMeters: r},
		WithinCircle{Field: FieldTripDestination, Center: center, RadiusMeters: r},
		WithinCircle{Field: FieldTripVia, Center: center, RadiusMeters: r},
		IntersectsPolygon{Field: FieldTripRoute, Ring: geo.CircleRing(center, r, CircleSegments)},
	}}, nil
}

// LeadMatchPredicate matches a lead whose pickup or dropoff point falls
// within radiusMeters of center.
func LeadMatchPredicate(center geo.Coord, radiusMeters float64) (Predicate, error) {
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("lead match center: %w", err)
	}
	r := normalizeRadius(radiusMeters)

	return Or{Preds: []Predicate{
		WithinCircle{Field: FieldLeadPickup, Center: center, RadiusMeters: r},
		WithinCircle{Field: FieldLeadDropoff, Center: center, RadiusMeters: r},
	}}, nil
}
