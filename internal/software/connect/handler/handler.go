package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// ConnectHTTPHandler adapts HTTP requests to the ConnectService.
type ConnectHTTPHandler struct {
	svc    ports.ConnectService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewConnectHTTPHandler wires an HTTP handler around the ConnectService.
func NewConnectHTTPHandler(svc ports.ConnectService, logger *logger.Logger, auth *jwt.Manager) *ConnectHTTPHandler {
	return &ConnectHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts connect request endpoints on the provided mux.
func (handler *ConnectHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	participants := jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer, user.RoleDriver)

	mux.HandleFunc("POST /connect-requests", participants(handler.handleCreate))
	mux.HandleFunc("GET /connect-requests", participants(handler.handleList))
	mux.HandleFunc("PUT /connect-requests/{request_id}/respond", participants(handler.handleRespond))
	mux.HandleFunc("PUT /connect-requests/{request_id}/counter-accept", participants(handler.handleCounterAccept))
	mux.HandleFunc("PUT /connect-requests/{request_id}/promote", participants(handler.handlePromote))
	mux.HandleFunc("GET /connect-requests/{request_id}/disclosure", participants(handler.handleDisclosure))
	mux.HandleFunc("DELETE /connect-requests/{request_id}", participants(handler.handleDelete))
}

// ----- general helpers -----

// jsonResponse encodes data to the HTTP response.
func (handler *ConnectHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
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

// httpError sends a JSON error response with a message.
func (handler *ConnectHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
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

// serviceError maps a service error onto the fault taxonomy's HTTP status.
func (handler *ConnectHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := fault.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	handler.httpError(ctx, w, status, msg, err)
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *ConnectHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
