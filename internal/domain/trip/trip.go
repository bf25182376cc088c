package trip

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"freight-connect/internal/domain/geo"
)

// Offer is a driver's declared route and availability.
type Offer struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// CreatedBy owns the offer for write purposes; AssignedDriverID is the
	// driver who will run it (usually the same user).
	CreatedBy        string
	AssignedDriverID string

	Start       geo.Point
	Destination geo.Point
	Via         []geo.Point
	Route       geo.Polyline

	DistanceMeters *float64

	IsActive bool
}

var ErrDriverRequired = errors.New("trip owner driver id is required")

// NewOffer validates the geometry and returns an active offer. The route
// polyline is optional; when present it must be a valid line.
func NewOffer(createdBy, assignedDriverID string, start, destination geo.Point, via []geo.Point, route geo.Polyline, distanceMeters *float64) (*Offer, error) {
	if createdBy = strings.TrimSpace(createdBy); createdBy == "" {
		return nil, ErrDriverRequired
	}
	if assignedDriverID = strings.TrimSpace(assignedDriverID); assignedDriverID == "" {
		assignedDriverID = createdBy
	}
	if err := start.Coord.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Coord.Validate(); err != nil {
		return nil, err
	}
	for i, v := range via {
		if err := v.Coord.Validate(); err != nil {
			return nil, fmt.Errorf("via point %d: %w", i, err)
		}
	}
	if len(route) > 0 {
		if err := route.Validate(); err != nil {
			return nil, err
		}
	}
	if distanceMeters != nil && *distanceMeters < 0 {
		return nil, errors.New("distance must not be negative")
	}

	now := time.Now().UTC()
	return &Offer{
		CreatedAt:        now,
		UpdatedAt:        now,
		CreatedBy:        createdBy,
		AssignedDriverID: assignedDriverID,
		Start:            start,
		Destination:      destination,
		Via:              via,
		Route:            route,
		DistanceMeters:   distanceMeters,
		IsActive:         true,
	}, nil
}

// OwnedBy reports whether the given driver may mutate or commit this offer.
func (o *Offer) OwnedBy(driverID string) bool {
	return o.CreatedBy == driverID || o.AssignedDriverID == driverID
}
