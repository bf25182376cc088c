package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"
)

// SearchLeads lists customer leads matching the proximity predicates built
// from the search input.
func (service *listingService) SearchLeads(ctx context.Context, in ports.LeadSearchInput) (ports.LeadPage, error) {
	page := in.Page.Normalize(service.maxPageSize)
	radius := in.RadiusMeters
	if radius <= 0 {
		radius = service.defaultRadius
	}

	mode := in.Mode
	if mode == "" {
		mode = ports.ModeRefineByDropoff
	}

	switch {
	case in.Pickup != nil && in.Dropoff != nil:
		pickupPred, err := geoquery.LeadMatchPredicate(*in.Pickup, radius)
		if err != nil {
			return ports.LeadPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		dropoffPred, err := geoquery.LeadMatchPredicate(*in.Dropoff, radius)
		if err != nil {
			return ports.LeadPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}

		if mode == ports.ModeRequireBoth {
			metrics.MatchSearches.WithLabelValues("lead", string(ports.ModeRequireBoth)).Inc()
			pred, err := geoquery.Combine(geoquery.ModeAll, pickupPred, dropoffPred)
			if err != nil {
				return ports.LeadPage{}, err
			}
			return service.searchLeadsPaged(ctx, pred, page)
		}

		metrics.MatchSearches.WithLabelValues("lead", string(ports.ModeRefineByDropoff)).Inc()
		return service.refineLeadsByDropoff(ctx, pickupPred, dropoffPred, page)

	case in.Pickup != nil:
		metrics.MatchSearches.WithLabelValues("lead", "pickupOnly").Inc()
		pred, err := geoquery.LeadMatchPredicate(*in.Pickup, radius)
		if err != nil {
			return ports.LeadPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		return service.searchLeadsPaged(ctx, pred, page)

	case in.Dropoff != nil:
		metrics.MatchSearches.WithLabelValues("lead", "dropoffOnly").Inc()
		pred, err := geoquery.LeadMatchPredicate(*in.Dropoff, radius)
		if err != nil {
			return ports.LeadPage{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
		}
		return service.searchLeadsPaged(ctx, pred, page)

	default:
		return ports.LeadPage{}, fmt.Errorf("%w: at least one of pickupLocation, dropoffLocation is required", fault.ErrValidation)
	}
}

func (service *listingService) searchLeadsPaged(ctx context.Context, pred geoquery.Predicate, page ports.Page) (ports.LeadPage, error) {
	var (
		items []lead.Lead
		total int
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		items, total, err = service.leadRepo.Search(txCtx, pred, page.Offset(), page.Limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "lead_search_failed", "Failed to search leads", err, nil)
		return ports.LeadPage{}, err
	}

	return leadPage(items, page, total), nil
}

// refineLeadsByDropoff mirrors the trip refinement: pickup matches fetched in
// stable order, dropoff narrowing applied in memory.
func (service *listingService) refineLeadsByDropoff(ctx context.Context, pickupPred, dropoffPred geoquery.Predicate, page ports.Page) (ports.LeadPage, error) {
	scanPage := ports.Page{Page: 1, Limit: service.refineScanCap}

	var candidates []lead.Lead
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		candidates, _, err = service.leadRepo.Search(txCtx, pickupPred, 0, scanPage.Limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "lead_search_failed", "Failed to search leads for refinement", err, nil)
		return ports.LeadPage{}, err
	}

	refined := candidates[:0:0]
	for _, l := range candidates {
		if geoquery.Evaluate(dropoffPred, leadGeometries(&l)) {
			refined = append(refined, l)
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

	return leadPage(refined[start:end], page, total), nil
}

// leadGeometries maps a stored lead onto the evaluator's geometry shape.
func leadGeometries(l *lead.Lead) geoquery.Geometries {
	return geoquery.Geometries{
		Points: map[string][]geo.Coord{
			geoquery.FieldLeadPickup:  {l.Pickup.Coord},
			geoquery.FieldLeadDropoff: {l.Dropoff.Coord},
		},
	}
}
