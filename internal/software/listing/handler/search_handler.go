package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"freight-connect/internal/ports"
)

// ----- Handler: GET /trips/search -----

// Query parameters: pickupLocation, dropoffLocation, currentLocation (each
// "lon,lat"), searchRadius (meters), pickupDropoffBoth ("true" switches the
// dual-point combinator from refine-by-dropoff to require-both), page, limit.
func (handler *ListingHTTPHandler) handleSearchTrips(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	q := r.URL.Query()

	pickup, err := parseCoord(q.Get("pickupLocation"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "pickupLocation: "+err.Error(), err)
		return
	}
	dropoff, err := parseCoord(q.Get("dropoffLocation"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "dropoffLocation: "+err.Error(), err)
		return
	}
	current, err := parseCoord(q.Get("currentLocation"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "currentLocation: "+err.Error(), err)
		return
	}

	in := ports.TripSearchInput{
		Pickup:          pickup,
		Dropoff:         dropoff,
		CurrentLocation: current,
		RadiusMeters:    radiusFromQuery(q.Get("searchRadius")),
		Mode:            modeFromQuery(q.Get("pickupDropoffBoth")),
		Page:            pageFromQuery(q),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := handler.svc.SearchTrips(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, result)
}

// ----- Handler: GET /leads/search -----

func (handler *ListingHTTPHandler) handleSearchLeads(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	q := r.URL.Query()

	pickup, err := parseCoord(q.Get("pickupLocation"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "pickupLocation: "+err.Error(), err)
		return
	}
	dropoff, err := parseCoord(q.Get("dropoffLocation"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "dropoffLocation: "+err.Error(), err)
		return
	}

	in := ports.LeadSearchInput{
		Pickup:       pickup,
		Dropoff:      dropoff,
		RadiusMeters: radiusFromQuery(q.Get("searchRadius")),
		Mode:         modeFromQuery(q.Get("pickupDropoffBoth")),
		Page:         pageFromQuery(q),
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := handler.svc.SearchLeads(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, result)
}

// ----- Handler: GET /trips/nearby -----

func (handler *ListingHTTPHandler) handleNearbyTrips(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	q := r.URL.Query()

	center, err := parseCoord(q.Get("location"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "location: "+err.Error(), err)
		return
	}
	if center == nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "location is required", nil)
		return
	}

	limit := 20
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = n
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	items, err := handler.svc.NearbyTrips(ctxWithTimeout, *center, radiusFromQuery(q.Get("searchRadius")), limit)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"items": items})
}

// radiusFromQuery parses searchRadius; zero lets the service default apply.
func radiusFromQuery(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// modeFromQuery maps the pickupDropoffBoth flag to a search mode. Absent or
// any value other than "true" keeps the refine-by-dropoff default.
func modeFromQuery(s string) ports.SearchMode {
	if strings.EqualFold(strings.TrimSpace(s), "true") {
		return ports.ModeRequireBoth
	}
	return ports.ModeRefineByDropoff
}
