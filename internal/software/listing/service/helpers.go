package service

import (
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/ports"
)

func toTripView(t *trip.Offer) ports.TripView {
	return ports.TripView{
		ID:               t.ID,
		CreatedBy:        t.CreatedBy,
		AssignedDriverID: t.AssignedDriverID,
		Start:            t.Start,
		Destination:      t.Destination,
		Via:              t.Via,
		Route:            t.Route,
		DistanceMeters:   t.DistanceMeters,
		CreatedAt:        t.CreatedAt,
	}
}

func toLeadView(l *lead.Lead) ports.LeadView {
	return ports.LeadView{
		ID:             l.ID,
		CustomerID:     l.CustomerID,
		Pickup:         l.Pickup,
		Dropoff:        l.Dropoff,
		DistanceMeters: l.DistanceMeters,
		CreatedAt:      l.CreatedAt,
	}
}

func tripPage(items []trip.Offer, page ports.Page, total int) ports.TripPage {
	out := ports.TripPage{
		Items: make([]ports.TripView, 0, len(items)),
		Meta:  ports.NewPageMeta(page, total),
	}
	for i := range items {
		out.Items = append(out.Items, toTripView(&items[i]))
	}
	return out
}

func leadPage(items []lead.Lead, page ports.Page, total int) ports.LeadPage {
	out := ports.LeadPage{
		Items: make([]ports.LeadView, 0, len(items)),
		Meta:  ports.NewPageMeta(page, total),
	}
	for i := range items {
		out.Items = append(out.Items, toLeadView(&items[i]))
	}
	return out
}
