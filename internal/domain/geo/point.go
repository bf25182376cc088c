package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// EarthRadiusMeters is the mean Earth radius used for all spherical math.
const EarthRadiusMeters = 6371000.0

var (
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
)

// Coord is a bare (lon, lat) pair in degrees, GeoJSON axis order.
type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate lies inside the WGS84 envelope.
func (c Coord) Valid() bool {
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// Validate returns the first range violation, if any.
func (c Coord) Validate() error {
	if c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidLongitude
	}
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidLatitude
	}
	return nil
}

// Point is an addressed coordinate as stored on leads and trip offers.
type Point struct {
	Address string `json:"address"`
	Coord   Coord  `json:"coordinates"`
}

// NewPoint validates the coordinate ranges and normalizes the address.
func NewPoint(address string, lon, lat float64) (Point, error) {
	p := Point{
		Address: strings.TrimSpace(address),
		Coord:   Coord{Lon: lon, Lat: lat},
	}
	if err := p.Coord.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Polyline is an ordered sequence of coordinates, e.g. a stored route line.
type Polyline []Coord

// Validate checks every vertex and requires at least two of them.
func (pl Polyline) Validate() error {
	if len(pl) < 2 {
		return errors.New("polyline needs at least two vertices")
	}
	for i, c := range pl {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("polyline vertex %d: %w", i, err)
		}
	}
	return nil
}

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(a, b Coord) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Destination solves the direct geodesic problem on a sphere: the coordinate
// reached from origin after travelling angularDist radians along the given
// bearing (radians, clockwise from north).
func Destination(origin Coord, bearingRad, angularDist float64) Coord {
	lat1 := origin.Lat * math.Pi / 180
	lon1 := origin.Lon * math.Pi / 180

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angularDist) +
		math.Cos(lat1)*math.Sin(angularDist)*math.Cos(bearingRad))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearingRad)*math.Sin(angularDist)*math.Cos(lat1),
		math.Cos(angularDist)-math.Sin(lat1)*math.Sin(lat2),
	)

	// normalize longitude to [-180, 180)
	lonDeg := math.Mod(lon2*180/math.Pi+540, 360) - 180

	return Coord{Lon: lonDeg, Lat: lat2 * 180 / math.Pi}
}

// CircleRing approximates a geodesic circle as a closed polygon ring with the
// given number of segments. The first vertex is repeated at the end so the
// ring can be handed straight to a polygon-intersection query.
func CircleRing(center Coord, radiusMeters float64, segments int) Polyline {
	if segments < 3 {
		segments = 3
	}
	angular := radiusMeters / EarthRadiusMeters

	ring := make(Polyline, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(segments)
		ring = append(ring, Destination(center, bearing, angular))
	}
	ring = append(ring, ring[0])
	return ring
}
