package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"freight-connect/internal/domain/geo"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type pointPayload struct {
	Address string  `json:"address"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
}

func (p pointPayload) toPoint() (geo.Point, error) {
	return geo.NewPoint(p.Address, p.Lon, p.Lat)
}

type createTripRequest struct {
	Start          pointPayload   `json:"tripStartLocation"`
	Destination    pointPayload   `json:"tripDestination"`
	Via            []pointPayload `json:"viaPoints"`
	Route          []geo.Coord    `json:"routeGeoJSON"`
	DistanceMeters *float64       `json:"distanceMeters"`
}

type createLeadRequest struct {
	Pickup         pointPayload `json:"pickupLocation"`
	Dropoff        pointPayload `json:"dropLocation"`
	DistanceMeters *float64     `json:"distanceMeters"`
}

// ----- Handler: POST /trips -----

func (handler *ListingHTTPHandler) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req createTripRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	start, err := req.Start.toPoint()
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "tripStartLocation: "+err.Error(), err)
		return
	}
	dest, err := req.Destination.toPoint()
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "tripDestination: "+err.Error(), err)
		return
	}

	via := make([]geo.Point, 0, len(req.Via))
	for _, vp := range req.Via {
		p, err := vp.toPoint()
		if err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "viaPoints: "+err.Error(), err)
			return
		}
		via = append(via, p)
	}

	in := ports.CreateTripInput{
		Start:          start,
		Destination:    dest,
		Via:            via,
		Route:          req.Route,
		DistanceMeters: req.DistanceMeters,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.CreateTrip(ctxWithTimeout, claims.Actor(), in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, view)
}

// ----- Handler: POST /leads -----

func (handler *ListingHTTPHandler) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req createLeadRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	pickup, err := req.Pickup.toPoint()
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "pickupLocation: "+err.Error(), err)
		return
	}
	dropoff, err := req.Dropoff.toPoint()
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "dropLocation: "+err.Error(), err)
		return
	}

	in := ports.CreateLeadInput{
		Pickup:         pickup,
		Dropoff:        dropoff,
		DistanceMeters: req.DistanceMeters,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.CreateLead(ctxWithTimeout, claims.Actor(), in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, view)
}
