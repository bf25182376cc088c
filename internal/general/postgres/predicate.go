package postgres

import (
	"encoding/json"
	"fmt"
	"strings"

	"freight-connect/internal/domain/geo"
	"freight-connect/internal/geoquery"
)

// geomColumns maps geoquery field names to SQL geometry expressions for one
// entity's table alias.
type geomColumns map[string]string

var tripGeomColumns = geomColumns{
	geoquery.FieldTripStart:       "t.start_point",
	geoquery.FieldTripDestination: "t.dest_point",
	geoquery.FieldTripVia:         "t.via_points",
	geoquery.FieldTripRoute:       "t.route_line",
}

var leadGeomColumns = geomColumns{
	geoquery.FieldLeadPickup:  "l.pickup_point",
	geoquery.FieldLeadDropoff: "l.dropoff_point",
}

// compilePredicate renders a geoquery predicate as a SQL boolean expression,
// appending bind values to args. Point-in-circle leaves compile to
// ST_DWithin over geography; polygon-intersection leaves to ST_Intersects
// against the precomputed circle ring.
func compilePredicate(p geoquery.Predicate, cols geomColumns, args *[]any) (string, error) {
	switch pred := p.(type) {
	case geoquery.WithinCircle:
		col, ok := cols[pred.Field]
		if !ok {
			return "", fmt.Errorf("no geometry column for field %q", pred.Field)
		}
		*args = append(*args, pred.Center.Lon, pred.Center.Lat, pred.RadiusMeters)
		n := len(*args)
		return fmt.Sprintf(
			"ST_DWithin(%s::geography, ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography, $%d)",
			col, n-2, n-1, n,
		), nil

	case geoquery.IntersectsPolygon:
		col, ok := cols[pred.Field]
		if !ok {
			return "", fmt.Errorf("no geometry column for field %q", pred.Field)
		}
		*args = append(*args, wktPolygon(pred.Ring))
		return fmt.Sprintf("ST_Intersects(%s, ST_GeomFromText($%d, 4326))", col, len(*args)), nil

	case geoquery.And:
		return compileJoin(pred.Preds, " AND ", cols, args)

	case geoquery.Or:
		return compileJoin(pred.Preds, " OR ", cols, args)

	default:
		return "", fmt.Errorf("unsupported predicate type %T", p)
	}
}

func compileJoin(preds []geoquery.Predicate, sep string, cols geomColumns, args *[]any) (string, error) {
	parts := make([]string, 0, len(preds))
	for _, sub := range preds {
		s, err := compilePredicate(sub, cols, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// ----- WKT writers -----

func wktPolygon(ring geo.Polyline) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i, c := range ring {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%f %f", c.Lon, c.Lat)
	}
	b.WriteString("))")
	return b.String()
}

func wktLineString(line geo.Polyline) string {
	var b strings.Builder
	b.WriteString("LINESTRING(")
	for i, c := range line {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%f %f", c.Lon, c.Lat)
	}
	b.WriteString(")")
	return b.String()
}

func wktMultiPoint(points []geo.Point) string {
	var b strings.Builder
	b.WriteString("MULTIPOINT(")
	for i, p := range points {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%f %f)", p.Coord.Lon, p.Coord.Lat)
	}
	b.WriteString(")")
	return b.String()
}

// ----- GeoJSON readers (columns come back via ST_AsGeoJSON) -----

type geoJSONGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

func parseCoordList(s string) ([]geo.Coord, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var g geoJSONGeometry
	if err := json.Unmarshal([]byte(s), &g); err != nil {
		return nil, fmt.Errorf("parse geometry geojson: %w", err)
	}
	out := make([]geo.Coord, 0, len(g.Coordinates))
	for _, pair := range g.Coordinates {
		if len(pair) < 2 {
			return nil, fmt.Errorf("geometry coordinate with %d members", len(pair))
		}
		out = append(out, geo.Coord{Lon: pair[0], Lat: pair[1]})
	}
	return out, nil
}
