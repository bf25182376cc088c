package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// ListingHTTPHandler adapts HTTP requests to the ListingService.
type ListingHTTPHandler struct {
	svc    ports.ListingService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewListingHTTPHandler wires an HTTP handler around the ListingService.
func NewListingHTTPHandler(svc ports.ListingService, logger *logger.Logger, auth *jwt.Manager) *ListingHTTPHandler {
	return &ListingHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts listing endpoints on the provided mux.
func (handler *ListingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	anyUser := jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver)
	drivers := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)
	customers := jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)

	mux.HandleFunc("GET /trips/search", anyUser(handler.handleSearchTrips))
	mux.HandleFunc("GET /trips/nearby", anyUser(handler.handleNearbyTrips))
	mux.HandleFunc("GET /leads/search", drivers(handler.handleSearchLeads))
	mux.HandleFunc("POST /trips", drivers(handler.handleCreateTrip))
	mux.HandleFunc("POST /leads", customers(handler.handleCreateLead))
}

// ----- general helpers -----

// parseCoord parses a "lon,lat" query value.
func parseCoord(s string) (*geo.Coord, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected \"lon,lat\", got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q", parts[1])
	}
	c := geo.Coord{Lon: lon, Lat: lat}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// pageFromQuery reads page/limit query params.
func pageFromQuery(q map[string][]string) ports.Page {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}
	page := ports.Page{Page: 1, Limit: 20}
	if n, err := strconv.Atoi(get("page")); err == nil && n > 0 {
		page.Page = n
	}
	if n, err := strconv.Atoi(get("limit")); err == nil && n > 0 {
		page.Limit = n
	}
	return page
}

func (handler *ListingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func (handler *ListingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

func (handler *ListingHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := fault.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	handler.httpError(ctx, w, status, msg, err)
}

func (handler *ListingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
