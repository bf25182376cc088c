package geoquery

import "freight-connect/internal/domain/geo"

// Geometries is the in-memory shape of one candidate's stored geometry,
// keyed by the Field* names. Point fields may carry several points (via
// stops); line fields carry a polyline.
type Geometries struct {
	Points map[string][]geo.Coord
	Lines  map[string]geo.Polyline
}

// Evaluate runs a predicate against in-memory geometries. It is the
// reference implementation of the store's spatial operators: haversine
// point-in-circle and planar polyline/polygon intersection (adequate at the
// few-kilometer radii this system queries).
func Evaluate(p Predicate, g Geometries) bool {
	switch pred := p.(type) {
	case WithinCircle:
		for _, pt := range g.Points[pred.Field] {
			if geo.HaversineMeters(pred.Center, pt) <= pred.RadiusMeters {
				return true
			}
		}
		return false

	case IntersectsPolygon:
		line, ok := g.Lines[pred.Field]
		if !ok || len(line) == 0 {
			return false
		}
		return polylineIntersectsRing(line, pred.Ring)

	case And:
		for _, sub := range pred.Preds {
			if !Evaluate(sub, g) {
				return false
			}
		}
		return true

	case Or:
		for _, sub := range pred.Preds {
			if Evaluate(sub, g) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// polylineIntersectsRing reports whether the line touches the polygon: a
// vertex inside the ring, or any segment crossing any ring edge.
func polylineIntersectsRing(line geo.Polyline, ring geo.Polyline) bool {
	if len(ring) < 4 { // closed ring needs at least a triangle
		return false
	}
	for _, v := range line {
		if pointInRing(v, ring) {
			return true
		}
	}
	for i := 0; i+1 < len(line); i++ {
		for j := 0; j+1 < len(ring); j++ {
			if segmentsIntersect(line[i], line[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

// pointInRing is a standard even-odd ray cast on the lon/lat plane.
func pointInRing(p geo.Coord, ring geo.Polyline) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lon-a.Lon)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

// segmentsIntersect uses the orientation test, with collinear endpoints
// handled by bounding-box checks.
func segmentsIntersect(p1, p2, q1, q2 geo.Coord) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, q1, p2) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, p2) {
		return true
	}
	if o3 == 0 && onSegment(q1, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(q1, p2, q2) {
		return true
	}
	return false
}

func orientation(a, b, c geo.Coord) int {
	v := (b.Lat-a.Lat)*(c.Lon-b.Lon) - (b.Lon-a.Lon)*(c.Lat-b.Lat)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func onSegment(a, p, b geo.Coord) bool {
	return p.Lon >= min(a.Lon, b.Lon) && p.Lon <= max(a.Lon, b.Lon) &&
		p.Lat >= min(a.Lat, b.Lat) && p.Lat <= max(a.Lat, b.Lat)
}
