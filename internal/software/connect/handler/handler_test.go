package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/ports"
)

// fakeConnectService records the last call and serves canned results.
type fakeConnectService struct {
	lastActor  user.Actor
	lastCreate ports.CreateConnectInput
	createErr  error
	respondIn  ports.RespondInput
	respondID  string
}

func (s *fakeConnectService) Create(_ context.Context, actor user.Actor, in ports.CreateConnectInput) (ports.ConnectRequestView, error) {
	s.lastActor = actor
	s.lastCreate = in
	if s.createErr != nil {
		return ports.ConnectRequestView{}, s.createErr
	}
	return ports.ConnectRequestView{
		ID:          "req-1",
		InitiatorID: actor.ID,
		RecipientID: in.RecipientID,
		LeadID:      in.LeadID,
		TripID:      in.TripID,
		Status:      "PENDING",
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *fakeConnectService) Respond(_ context.Context, actor user.Actor, requestID string, in ports.RespondInput) (ports.ConnectRequestView, error) {
	s.lastActor = actor
	s.respondID = requestID
	s.respondIn = in
	return ports.ConnectRequestView{ID: requestID, Status: "ACCEPTED"}, nil
}

func (s *fakeConnectService) CounterAccept(_ context.Context, actor user.Actor, requestID string) (ports.ConnectRequestView, error) {
	return ports.ConnectRequestView{ID: requestID, Status: "ACCEPTED", InitiatorAccepted: true}, nil
}

func (s *fakeConnectService) PromoteFromHold(_ context.Context, actor user.Actor, requestID string) (ports.ConnectRequestView, error) {
	return ports.ConnectRequestView{ID: requestID, Status: "ACCEPTED"}, nil
}

func (s *fakeConnectService) GetDisclosure(_ context.Context, actor user.Actor, requestID string) (ports.DisclosureResult, error) {
	return ports.DisclosureResult{Show: false}, nil
}

func (s *fakeConnectService) Delete(_ context.Context, actor user.Actor, requestID string) error {
	return nil
}

func (s *fakeConnectService) ListForActor(_ context.Context, actor user.Actor, status string, page ports.Page) (ports.ConnectRequestPage, error) {
	s.lastActor = actor
	return ports.ConnectRequestPage{Meta: ports.NewPageMeta(page.Normalize(0), 0)}, nil
}

const testSecret = "test-secret-test-secret-test-1234"

func newTestServer(t *testing.T, svc ports.ConnectService) (*httptest.Server, *jwt.Manager) {
	t.Helper()
	mgr := jwt.NewManager(testSecret, time.Hour)
	h := NewConnectHTTPHandler(svc, logger.New("connect-handler-test"), mgr)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, mgr
}

func bearer(t *testing.T, mgr *jwt.Manager, userID string, role user.Role) string {
	t.Helper()
	token, _, err := mgr.IssueUserToken(userID, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, method, url, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateConnectRequest_Created(t *testing.T) {
	svc := &fakeConnectService{}
	srv, mgr := newTestServer(t, svc)
	auth := bearer(t, mgr, "cust-1", user.RoleCustomer)

	body := `{"recipientId":"drv-1","customerRequestId":"lead-1","tripId":"trip-1","message":"hello"}`
	resp := doJSON(t, http.MethodPost, srv.URL+"/connect-requests", auth, body)

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var view ports.ConnectRequestView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.ID != "req-1" || view.Status != "PENDING" {
		t.Fatalf("view = %+v", view)
	}
	if svc.lastActor.ID != "cust-1" || svc.lastActor.Role != user.RoleCustomer {
		t.Fatalf("actor from claims = %+v", svc.lastActor)
	}
	if svc.lastCreate.LeadID != "lead-1" || svc.lastCreate.TripID != "trip-1" {
		t.Fatalf("input = %+v", svc.lastCreate)
	}
}

func TestCreateConnectRequest_AuthRequired(t *testing.T) {
	srv, mgr := newTestServer(t, &fakeConnectService{})

	body := `{"recipientId":"drv-1","customerRequestId":"lead-1","tripId":"trip-1"}`

	resp := doJSON(t, http.MethodPost, srv.URL+"/connect-requests", "", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/connect-requests", "Bearer not-a-token", body)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", resp.StatusCode)
	}

	admin := bearer(t, mgr, "adm-1", user.RoleAdmin)
	resp = doJSON(t, http.MethodPost, srv.URL+"/connect-requests", admin, body)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin status = %d, want 403", resp.StatusCode)
	}
}

func TestCreateConnectRequest_BadBody(t *testing.T) {
	srv, mgr := newTestServer(t, &fakeConnectService{})
	auth := bearer(t, mgr, "cust-1", user.RoleCustomer)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"recipientId":`, http.StatusBadRequest},
		{"unknown field", `{"recipientId":"drv-1","customerRequestId":"l","tripId":"t","bogus":1}`, http.StatusBadRequest},
		{"missing recipient", `{"customerRequestId":"lead-1","tripId":"trip-1"}`, http.StatusBadRequest},
		{"missing lead", `{"recipientId":"drv-1","tripId":"trip-1"}`, http.StatusBadRequest},
		{"missing trip", `{"recipientId":"drv-1","customerRequestId":"lead-1"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/connect-requests", auth, tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestCreateConnectRequest_ContentTypeEnforced(t *testing.T) {
	srv, mgr := newTestServer(t, &fakeConnectService{})
	auth := bearer(t, mgr, "cust-1", user.RoleCustomer)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/connect-requests", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", resp.StatusCode)
	}
}

func TestCreateConnectRequest_FaultStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", fmt.Errorf("%w: duplicate", fault.ErrConflict), http.StatusConflict},
		{"forbidden", fmt.Errorf("%w: not yours", fault.ErrForbidden), http.StatusForbidden},
		{"not found", fmt.Errorf("%w: lead", fault.ErrNotFound), http.StatusNotFound},
		{"insufficient", fmt.Errorf("%w: balance", fault.ErrInsufficientTokens), http.StatusPaymentRequired},
		{"unpriced", fmt.Errorf("%w: no band", fault.ErrNotPriced), http.StatusUnprocessableEntity},
	}
	body := `{"recipientId":"drv-1","customerRequestId":"lead-1","tripId":"trip-1"}`
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, mgr := newTestServer(t, &fakeConnectService{createErr: tc.err})
			auth := bearer(t, mgr, "cust-1", user.RoleCustomer)
			resp := doJSON(t, http.MethodPost, srv.URL+"/connect-requests", auth, body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestRespond_RoutesActionAndID(t *testing.T) {
	svc := &fakeConnectService{}
	srv, mgr := newTestServer(t, svc)
	auth := bearer(t, mgr, "drv-1", user.RoleDriver)

	resp := doJSON(t, http.MethodPut, srv.URL+"/connect-requests/req-9/respond", auth, `{"action":"accept"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.respondID != "req-9" || svc.respondIn.Action != ports.ActionAccept {
		t.Fatalf("service call = id %q action %q", svc.respondID, svc.respondIn.Action)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/connect-requests/req-9/respond", auth, `{"action":"maybe"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad action status = %d, want 400", resp.StatusCode)
	}
}

func TestList_PassesActorFromClaims(t *testing.T) {
	svc := &fakeConnectService{}
	srv, mgr := newTestServer(t, svc)
	auth := bearer(t, mgr, "drv-1", user.RoleDriver)

	resp := doJSON(t, http.MethodGet, srv.URL+"/connect-requests?status=pending&page=1&limit=10", auth, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if svc.lastActor.ID != "drv-1" || !svc.lastActor.Role.IsDriver() {
		t.Fatalf("actor = %+v", svc.lastActor)
	}
}
