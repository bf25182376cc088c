package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"freight-connect/internal/general/jwt"
	"freight-connect/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type createConnectRequest struct {
	RecipientID       string `json:"recipientId"`
	CustomerRequestID string `json:"customerRequestId"` // lead id
	TripID            string `json:"tripId"`
	Message           string `json:"message"`
}

// ----- Handler: POST /connect-requests -----

func (handler *ConnectHTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	// check the content type
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	// limit body size
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	// decode strictly
	var req createConnectRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	// obtain the JWT claims
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	if strings.TrimSpace(req.RecipientID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "recipientId is required", nil)
		return
	}
	if strings.TrimSpace(req.CustomerRequestID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "customerRequestId is required", nil)
		return
	}
	if strings.TrimSpace(req.TripID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "tripId is required", nil)
		return
	}

	in := ports.CreateConnectInput{
		RecipientID: strings.TrimSpace(req.RecipientID),
		LeadID:      strings.TrimSpace(req.CustomerRequestID),
		TripID:      strings.TrimSpace(req.TripID),
		Message:     strings.TrimSpace(req.Message),
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.Create(ctxWithTimeout, claims.Actor(), in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, view)
}
