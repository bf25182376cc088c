package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// WalletHTTPHandler adapts HTTP requests to the WalletService.
type WalletHTTPHandler struct {
	svc    ports.WalletService
	logger *logger.Logger
	auth   *jwt.Manager
}

// NewWalletHTTPHandler wires an HTTP handler around the WalletService.
func NewWalletHTTPHandler(svc ports.WalletService, logger *logger.Logger, auth *jwt.Manager) *WalletHTTPHandler {
	return &WalletHTTPHandler{svc: svc, logger: logger, auth: auth}
}

// RegisterRoutes mounts wallet endpoints on the provided mux.
func (handler *WalletHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	drivers := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)
	admins := jwt.AuthMiddlewareFunc(handler.auth, user.RoleAdmin)

	mux.HandleFunc("GET /wallet", drivers(handler.handleBalance))
	mux.HandleFunc("GET /wallet/transactions", drivers(handler.handleTransactions))
	mux.HandleFunc("POST /admin/wallets/{driver_id}/credit", admins(handler.handleAdminCredit))
	mux.HandleFunc("POST /admin/wallets/{driver_id}/debit", admins(handler.handleAdminDebit))
}

// ----- Handler: GET /wallet -----

func (handler *WalletHTTPHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	view, err := handler.svc.Balance(ctxWithTimeout, claims.Actor())
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- Handler: GET /wallet/transactions -----

func (handler *WalletHTTPHandler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	q := r.URL.Query()
	page := ports.Page{Page: 1, Limit: 20}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		page.Limit = n
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := handler.svc.Transactions(ctxWithTimeout, claims.Actor(), page)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, result)
}

// --- Request DTO (HTTP boundary) ---

type adjustRequest struct {
	Amount        int64   `json:"amount"`
	Reason        string  `json:"reason"`
	RelatedPlanID *string `json:"relatedPlanId"`
}

// ----- Handlers: POST /admin/wallets/{driver_id}/credit|debit -----

func (handler *WalletHTTPHandler) handleAdminCredit(w http.ResponseWriter, r *http.Request) {
	handler.handleAdjust(w, r, true)
}

func (handler *WalletHTTPHandler) handleAdminDebit(w http.ResponseWriter, r *http.Request) {
	handler.handleAdjust(w, r, false)
}

func (handler *WalletHTTPHandler) handleAdjust(w http.ResponseWriter, r *http.Request, credit bool) {
	ctx := handler.withReqID(r.Context(), r)

	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "driver_id is required", nil)
		return
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	var req adjustRequest
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

	if strings.TrimSpace(req.Reason) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "reason is required for manual adjustments", nil)
		return
	}

	in := ports.AdjustInput{
		DriverID:      driverID,
		Amount:        req.Amount,
		Reason:        strings.TrimSpace(req.Reason),
		RelatedPlanID: req.RelatedPlanID,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		view ports.WalletView
		err  error
	)
	if credit {
		view, err = handler.svc.AdminCredit(ctxWithTimeout, claims.Actor(), in)
	} else {
		view, err = handler.svc.AdminDebit(ctxWithTimeout, claims.Actor(), in)
	}
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, view)
}

// ----- general helpers -----

func (handler *WalletHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
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

func (handler *WalletHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
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

func (handler *WalletHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	status := fault.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	handler.httpError(ctx, w, status, msg, err)
}

func (handler *WalletHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = uuid.NewString()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}
