package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/ports"
)

// CreateTrip persists a driver's trip offer and mirrors its start point into
// the locator index.
func (service *listingService) CreateTrip(ctx context.Context, actor user.Actor, in ports.CreateTripInput) (ports.TripView, error) {
	if !actor.Role.IsDriver() {
		return ports.TripView{}, fmt.Errorf("%w: only drivers may publish trip offers", fault.ErrForbidden)
	}

	t, err := trip.NewOffer(actor.ID, actor.ID, in.Start, in.Destination, in.Via, in.Route, in.DistanceMeters)
	if err != nil {
		return ports.TripView{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.tripRepo.Create(txCtx, t)
	})
	if err != nil {
		service.logger.Error(ctx, "trip_create_failed", "Failed to create trip offer", err, map[string]any{
			"driver_id": actor.ID,
		})
		return ports.TripView{}, err
	}

	// best-effort mirror; the DB search works without it
	if service.locator != nil {
		if err := service.locator.Add(ctx, t.ID, t.Start.Coord.Lon, t.Start.Coord.Lat); err != nil {
			service.logger.Error(ctx, "trip_locator_add_failed", "Failed to index trip start point", err, map[string]any{
				"trip_id": t.ID,
			})
		}
	}

	service.logger.Info(ctx, "trip_created", fmt.Sprintf("Trip offer %s created", t.ID), map[string]any{
		"driver_id": actor.ID,
	})

	return toTripView(t), nil
}

// CreateLead persists a customer's freight request.
func (service *listingService) CreateLead(ctx context.Context, actor user.Actor, in ports.CreateLeadInput) (ports.LeadView, error) {
	if !actor.Role.IsCustomer() {
		return ports.LeadView{}, fmt.Errorf("%w: only customers may post leads", fault.ErrForbidden)
	}

	l, err := lead.NewLead(actor.ID, in.Pickup, in.Dropoff, in.DistanceMeters)
	if err != nil {
		return ports.LeadView{}, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.leadRepo.Create(txCtx, l)
	})
	if err != nil {
		service.logger.Error(ctx, "lead_create_failed", "Failed to create lead", err, map[string]any{
			"customer_id": actor.ID,
		})
		return ports.LeadView{}, err
	}

	service.logger.Info(ctx, "lead_created", fmt.Sprintf("Lead %s created", l.ID), map[string]any{
		"customer_id": actor.ID,
	})

	return toLeadView(l), nil
}
