package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// PricingHTTPHandler adapts HTTP requests to the PricingService.
type PricingHTTPHandler struct {
	svc    ports.PricingService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewPricingHTTPHandler wires an HTTP handler around the PricingService.
func NewPricingHTTPHandler(svc ports.PricingService, logger *logger.Logger, auth *jwt.Manager) *PricingHTTPHandler {
	return &PricingHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts admin band maintenance endpoints on the provided mux.
func (handler *PricingHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	admins := jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)

	mux.HandleFunc("POST /admin/bands/{table}", admins(handler.handleUpsert))
	mux.HandleFunc("GET /admin/bands/{table}", admins(handler.handleList))
	mux.HandleFunc("DELETE /admin/bands/{table}/{band_id}", admins(handler.handleArchive))
}

// --- Request DTO (HTTP boundary) ---

type bandRequest struct {
	ID     string  `json:"id"`
	FromKm float64 `json:"fromKm"`
	ToKm   float64 `json:"toKm"`
	Cost   int64   `json:"cost"`
}

// ----- Handler: POST /admin/bands/{table} -----

func (handler *PricingHTTPHandler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	table := strings.TrimSpace(r.PathValue("table"))

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req bandRequest
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

	in := ports.BandInput{
		ID:     strings.TrimSpace(req.ID),
		Table:  table,
		FromKm: req.FromKm,
		ToKm:   req.ToKm,
		Cost:   req.Cost,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.UpsertBand(ctxWithTimeout, claims.Actor(), in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	status := http.StatusCreated
	if in.ID != "" {
		status = http.StatusOK
	}
	handler.jsonResponse(ctxWithTimeout, w, status, view)
}

// ----- Handler: GET /admin/bands/{table} -----

func (handler *PricingHTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bands, err := handler.svc.ListBands(ctxWithTimeout, claims.Actor(), r.PathValue("table"))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"items": bands})
}

// ----- Handler: DELETE /admin/bands/{table}/{band_id} -----

func (handler *PricingHTTPHandler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	bandID := strings.TrimSpace(r.PathValue("band_id"))
	if bandID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "band_id is required", nil)
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := handler.svc.ArchiveBand(ctxWithTimeout, claims.Actor(), r.PathValue("table"), bandID); err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]string{"status": "archived"})
}

// ----- general helpers -----

func (handler *PricingHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
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

func (handler *PricingHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
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

func (handler *PricingHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := fault.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	handler.httpError(ctx, w, status, msg, err)
}

func (handler *PricingHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
