package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"
)

// NearbyTrips is the fast approximate discovery path: trips whose start point
// lies within radiusMeters of center, closest first, served from the locator
// index. When the locator is unavailable it falls back to the store-side
// start-point predicate.
func (service *listingService) NearbyTrips(ctx context.Context, center geo.Coord, radiusMeters float64, limit int) ([]ports.TripView, error) {
	if err := center.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}
	if radiusMeters <= 0 {
		radiusMeters = service.defaultRadius
	}
	if limit < 1 || limit > service.maxPageSize {
		limit = service.maxPageSize
	}

	if service.locator != nil {
		ids, err := service.locator.Nearby(ctx, center.Lon, center.Lat, radiusMeters, limit)
		if err == nil {
			var items []trip.Offer
			err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
				var err error
				items, err = service.tripRepo.GetByIDs(txCtx, ids)
				return err
			})
			if err != nil {
				return nil, err
			}

			out := make([]ports.TripView, 0, len(items))
			for i := range items {
				out = append(out, toTripView(&items[i]))
			}
			return out, nil
		}

		metrics.LocatorFallbacks.Inc()
		service.logger.Error(ctx, "trip_locator_unavailable", "Locator search failed, falling back to database", err, nil)
	}

	pred := geoquery.WithinCircle{Field: geoquery.FieldTripStart, Center: center, RadiusMeters: radiusMeters}

	var items []trip.Offer
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		items, _, err = service.tripRepo.Search(txCtx, pred, 0, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.TripView, 0, len(items))
	for i := range items {
		out = append(out, toTripView(&items[i]))
	}
	return out, nil
}
