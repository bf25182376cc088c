package lead

import (
	"errors"
	"strings"
	"time"

	"freight-connect/internal/domain/geo"
)

// Lead is a customer's request for freight transport between two points.
type Lead struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	CustomerID string
	Pickup     geo.Point
	Dropoff    geo.Point

	// DistanceMeters is the declared haul length; nil when the customer
	// did not supply one.
	DistanceMeters *float64

	IsActive bool
}

var ErrCustomerRequired = errors.New("customer id is required")

// NewLead validates ownership and both endpoints and returns an active lead.
func NewLead(customerID string, pickup, dropoff geo.Point, distanceMeters *float64) (*Lead, error) {
	if customerID = strings.TrimSpace(customerID); customerID == "" {
		return nil, ErrCustomerRequired
	}
	if err := pickup.Coord.Validate(); err != nil {
		return nil, err
	}
	if err := dropoff.Coord.Validate(); err != nil {
		return nil, err
	}
	if distanceMeters != nil && *distanceMeters < 0 {
		return nil, errors.New("distance must not be negative")
	}

	now := time.Now().UTC()
	return &Lead{
		CreatedAt:      now,
		UpdatedAt:      now,
		CustomerID:     customerID,
		Pickup:         pickup,
		Dropoff:        dropoff,
		DistanceMeters: distanceMeters,
		IsActive:       true,
	}, nil
}

// DistanceKm returns the haul length in kilometers, falling back to the
// great-circle pickup→dropoff distance when none was declared.
func (l *Lead) DistanceKm() float64 {
	if l.DistanceMeters != nil {
		return *l.DistanceMeters / 1000.0
	}
	return geo.HaversineMeters(l.Pickup.Coord, l.Dropoff.Coord) / 1000.0
}
