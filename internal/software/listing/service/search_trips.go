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

// SearchTrips lists trip offers matching the proximity predicates built from
// the search input. A current-location search is single-point; pickup and
// dropoff together engage one of the two dual-point combinators.
func (service *listingService) SearchTrips(ctx context.Context, in ports.TripSearchInput) (ports.TripPage, error) {
	page := in.Page.Normalize(service.maxPageSize)
	radius := in.RadiusMeters
	if radius <= 0 {
		radius = service.defaultRadius
	}

	mode := in.Mode
	if mode == "" {
		mode = ports.ModeRefineByDropoff
	}

	// single-point search: current location wins over everything else
	if in.CurrentLocation != nil {
		metrics.MatchSearches.WithLabelValues("trip", "currentLocation").Inc()

		pred, err := geoquery.TripMatchPredicate(*in.CurrentLocation, radius)
		if err != nil {
			return ports.TripPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		return service.searchTripsPaged(ctx, pred, page)
	}

	switch {
	case in.Pickup != nil && in.Dropoff != nil:
		pickupPred, err := geoquery.TripMatchPredicate(*in.Pickup, radius)
		if err != nil {
			return ports.TripPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		dropoffPred, err := geoquery.TripMatchPredicate(*in.Dropoff, radius)
		if err != nil {
			return ports.TripPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}

		if mode == ports.ModeRequireBoth {
			metrics.MatchSearches.WithLabelValues("trip", string(ports.ModeRequireBoth)).Inc()
			pred, err := geoquery.Combine(geoquery.ModeAll, pickupPred, dropoffPred)
			if err != nil {
				return ports.TripPage{}, err
			}
			return service.searchTripsPaged(ctx, pred, page)
		}

		metrics.MatchSearches.WithLabelValues("trip", string(ports.ModeRefineByDropoff)).Inc()
		return service.refineTripsByDropoff(ctx, pickupPred, dropoffPred, page)

	case in.Pickup != nil:
		metrics.MatchSearches.WithLabelValues("trip", "pickupOnly").Inc()
		pred, err := geoquery.TripMatchPredicate(*in.Pickup, radius)
		if err != nil {
			return ports.TripPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		return service.searchTripsPaged(ctx, pred, page)

	case in.Dropoff != nil:
		metrics.MatchSearches.WithLabelValues("trip", "dropoffOnly").Inc()
		pred, err := geoquery.TripMatchPredicate(*in.Dropoff, radius)
		if err != nil {
			return ports.TripPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		return service.searchTripsPaged(ctx, pred, page)

	default:
		return ports.TripPage{}, fmt.Errorf("%w: at least one of pickupLocation, dropoffLocation, currentLocation is required", fault.ErrValidation)
	}
}

// searchTripsPaged runs one store-side predicate search with paging.
func (service *listingService) searchTripsPaged(ctx context.Context, pred geoquery.Predicate, page ports.Page) (ports.TripPage, error) {
	var (
		items []trip.Offer
		total int
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		items, total, err = service.tripRepo.Search(txCtx, pred, page.Offset(), page.Limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "trip_search_failed", "Failed to search trips", err, nil)
		return ports.TripPage{}, err
	}

	return tripPage(items, page, total), nil
}

// refineTripsByDropoff fetches pickup matches in stable creation order, then
// narrows them with the dropoff predicate in memory, preserving order, and
// paginates the narrowed set.
func (service *listingService) refineTripsByDropoff(ctx context.Context, pickupPred, dropoffPred geoquery.Predicate, page ports.Page) (ports.TripPage, error) {
	var candidates []trip.Offer
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		candidates, err = service.tripRepo.SearchAll(txCtx, pickupPred, service.refineScanCap)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "trip_search_failed", "Failed to search trips for refinement", err, nil)
		return ports.TripPage{}, err
	}

	refined := candidates[:0:0]
	for _, t := range candidates {
		if geoquery.Evaluate(dropoffPred, tripGeometries(&t)) {
			refined = append(refined, t)
		}
	}

	total := len(refined)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}

	return tripPage(refined[start:end], page, total), nil
}

// tripGeometries maps a stored offer onto the evaluator's geometry shape.
func tripGeometries(t *trip.Offer) geoquery.Geometries {
	g := geoquery.Geometries{
		Points: map[string][]geo.Coord{
			geoquery.FieldTripStart:       {t.Start.Coord},
			geoquery.FieldTripDestination: {t.Destination.Coord},
		},
		Lines: map[string]geo.Polyline{},
	}
	for _, v := range t.Via {
		g.Points[geoquery.FieldTripVia] = append(g.Points[geoquery.FieldTripVia], v.Coord)
	}
	if len(t.Route) > 0 {
		g.Lines[geoquery.FieldTripRoute] = t.Route
	}
	return g
}
