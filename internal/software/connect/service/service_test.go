package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/general/rabbitmq"
	"freight-connect/internal/geoquery"
	"freight-connect/internal/ports"
)

// ----- in-memory fakes -----

// fakeUoW runs the function directly. Fakes emulate rollback by handing out
// copies and only persisting on explicit Update calls.
type fakeUoW struct{}

func (fakeUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDirectory struct {
	profiles map[string]user.Profile
}

func (d *fakeDirectory) Resolve(_ context.Context, userID string) (*user.Profile, error) {
	p, ok := d.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", fault.ErrNotFound, userID)
	}
	cp := p
	return &cp, nil
}

type fakeLeadRepo struct {
	leads map[string]lead.Lead
}

func (r *fakeLeadRepo) Create(_ context.Context, l *lead.Lead) error {
	r.leads[l.ID] = *l
	return nil
}

func (r *fakeLeadRepo) GetByID(_ context.Context, id string) (*lead.Lead, error) {
	l, ok := r.leads[id]
	if !ok || !l.IsActive {
		return nil, fmt.Errorf("%w: lead %s", fault.ErrNotFound, id)
	}
	cp := l
	return &cp, nil
}

func (r *fakeLeadRepo) Search(context.Context, geoquery.Predicate, int, int) ([]lead.Lead, int, error) {
	return nil, 0, nil
}

func (r *fakeLeadRepo) Deactivate(_ context.Context, id string) error {
	l := r.leads[id]
	l.IsActive = false
	r.leads[id] = l
	return nil
}

type fakeTripRepo struct {
	trips map[string]trip.Offer
}

func (r *fakeTripRepo) Create(_ context.Context, t *trip.Offer) error {
	r.trips[t.ID] = *t
	return nil
}

func (r *fakeTripRepo) GetByID(_ context.Context, id string) (*trip.Offer, error) {
	t, ok := r.trips[id]
	if !ok || !t.IsActive {
		return nil, fmt.Errorf("%w: trip %s", fault.ErrNotFound, id)
	}
	cp := t
	return &cp, nil
}

func (r *fakeTripRepo) Search(context.Context, geoquery.Predicate, int, int) ([]trip.Offer, int, error) {
	return nil, 0, nil
}

func (r *fakeTripRepo) SearchAll(context.Context, geoquery.Predicate, int) ([]trip.Offer, error) {
	return nil, nil
}

func (r *fakeTripRepo) GetByIDs(context.Context, []string) ([]trip.Offer, error) {
	return nil, nil
}

func (r *fakeTripRepo) Deactivate(context.Context, string) error { return nil }

type fakeConnectRepo struct {
	seq  int
	reqs map[string]connect.Request
}

func (r *fakeConnectRepo) Create(_ context.Context, req *connect.Request) error {
	for _, existing := range r.reqs {
		if existing.IsActive &&
			existing.InitiatorID == req.InitiatorID &&
			existing.RecipientID == req.RecipientID &&
			existing.LeadID == req.LeadID &&
			existing.TripID == req.TripID {
			return fmt.Errorf("%w: duplicate connect request", fault.ErrConflict)
		}
	}
	r.seq++
	req.ID = fmt.Sprintf("req-%d", r.seq)
	r.reqs[req.ID] = *req
	return nil
}

func (r *fakeConnectRepo) GetByID(_ context.Context, id string) (*connect.Request, error) {
	req, ok := r.reqs[id]
	if !ok || !req.IsActive {
		return nil, fmt.Errorf("%w: connect request %s", fault.ErrNotFound, id)
	}
	cp := req
	return &cp, nil
}

func (r *fakeConnectRepo) Update(_ context.Context, req *connect.Request) error {
	if _, ok := r.reqs[req.ID]; !ok {
		return fmt.Errorf("%w: connect request %s", fault.ErrNotFound, req.ID)
	}
	r.reqs[req.ID] = *req
	return nil
}

func (r *fakeConnectRepo) SoftDelete(_ context.Context, id string) error {
	req, ok := r.reqs[id]
	if !ok {
		return fmt.Errorf("%w: connect request %s", fault.ErrNotFound, id)
	}
	req.IsActive = false
	r.reqs[id] = req
	return nil
}

func (r *fakeConnectRepo) ListForUser(_ context.Context, userID string, status *connect.Status, offset, limit int) ([]connect.Request, int, error) {
	var all []connect.Request
	for _, req := range r.reqs {
		if !req.IsActive {
			continue
		}
		if req.InitiatorID != userID && req.RecipientID != userID {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		all = append(all, req)
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type fakeWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	txns     []wallet.Transaction
}

func (r *fakeWalletRepo) GetOrCreate(_ context.Context, driverID string) (*wallet.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &wallet.Wallet{DriverID: driverID, Balance: r.balances[driverID]}, nil
}

func (r *fakeWalletRepo) Balance(_ context.Context, driverID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[driverID], nil
}

func (r *fakeWalletRepo) Credit(_ context.Context, txn *wallet.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[txn.DriverID] += txn.Amount
	r.txns = append(r.txns, *txn)
	return r.balances[txn.DriverID], nil
}

func (r *fakeWalletRepo) DebitIfSufficient(_ context.Context, txn *wallet.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[txn.DriverID] < txn.Amount {
		return 0, wallet.ErrInsufficientTokens
	}
	r.balances[txn.DriverID] -= txn.Amount
	r.txns = append(r.txns, *txn)
	return r.balances[txn.DriverID], nil
}

func (r *fakeWalletRepo) Transactions(_ context.Context, driverID string, offset, limit int) ([]wallet.Transaction, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []wallet.Transaction
	for _, t := range r.txns {
		if t.DriverID == driverID {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

type fakeBandRepo struct {
	bands []pricing.Band
}

func (r *fakeBandRepo) Upsert(_ context.Context, b *pricing.Band) error {
	r.bands = append(r.bands, *b)
	return nil
}

func (r *fakeBandRepo) Lookup(_ context.Context, table pricing.Table, distanceKm float64) (int64, error) {
	for i := range r.bands {
		b := &r.bands[i]
		if b.Table == table && b.IsActive && b.Covers(distanceKm) {
			return b.Cost, nil
		}
	}
	return 0, fmt.Errorf("%w: %s at %.1f km", fault.ErrNotPriced, table, distanceKm)
}

func (r *fakeBandRepo) List(_ context.Context, table pricing.Table) ([]pricing.Band, error) {
	var out []pricing.Band
	for _, b := range r.bands {
		if b.Table == table && b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBandRepo) Archive(context.Context, pricing.Table, string) error { return nil }

// ----- fixture -----

const (
	customerID = "cust-1"
	driverID   = "drv-1"
	leadID     = "lead-1"
	tripID     = "trip-1"
)

var (
	customerActor = user.Actor{ID: customerID, Role: user.RoleCustomer}
	driverActor   = user.Actor{ID: driverID, Role: user.RoleDriver}
)

type fixture struct {
	svc     ports.ConnectService
	connect *fakeConnectRepo
	wallets *fakeWalletRepo
	bands   *fakeBandRepo
	leads   *fakeLeadRepo
}

// newFixture wires the service around one customer lead, one driver trip and
// a 25-token band covering the lead's 12 km haul.
func newFixture(t *testing.T, driverBalance int64) *fixture {
	t.Helper()

	dist := 12000.0
	leads := &fakeLeadRepo{leads: map[string]lead.Lead{
		leadID: {ID: leadID, CustomerID: customerID, DistanceMeters: &dist, IsActive: true},
	}}
	trips := &fakeTripRepo{trips: map[string]trip.Offer{
		tripID: {ID: tripID, CreatedBy: driverID, AssignedDriverID: driverID, IsActive: true},
	}}
	connects := &fakeConnectRepo{reqs: map[string]connect.Request{}}
	wallets := &fakeWalletRepo{balances: map[string]int64{driverID: driverBalance}}
	bands := &fakeBandRepo{bands: []pricing.Band{
		{ID: "band-1", Table: pricing.TableLeadTokens, FromKm: 0, ToKm: 50, Cost: 25, IsActive: true},
	}}
	users := &fakeDirectory{profiles: map[string]user.Profile{
		customerID: {ID: customerID, Role: user.RoleCustomer, Contact: user.Contact{Name: "Asha", Phone: "+91-1", Email: "asha@example.com"}},
		driverID:   {ID: driverID, Role: user.RoleDriver, Contact: user.Contact{Name: "Biju", Phone: "+91-2", WhatsappNumber: "+91-2"}},
	}}

	svc := NewConnectService(
		logger.New("connect-test"),
		fakeUoW{},
		connects, leads, trips, wallets, bands, users,
		rabbitmq.NewMQPublisher(&rabbitmq.Client{}),
	)
	return &fixture{svc: svc, connect: connects, wallets: wallets, bands: bands, leads: leads}
}

func (f *fixture) create(t *testing.T, actor user.Actor, recipient string) ports.ConnectRequestView {
	t.Helper()
	view, err := f.svc.Create(context.Background(), actor, ports.CreateConnectInput{
		RecipientID: recipient,
		LeadID:      leadID,
		TripID:      tripID,
		Message:     "interested",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return view
}

// ----- tests -----

func TestCreate_PendingWithPriceSnapshot(t *testing.T) {
	f := newFixture(t, 10) // below the 25-token cost

	view := f.create(t, customerActor, driverID)

	if view.Status != connect.StatusPending.String() {
		t.Fatalf("status = %s, want PENDING", view.Status)
	}
	if view.TokensRequired != 25 {
		t.Fatalf("tokensRequired = %d, want 25", view.TokensRequired)
	}
	if view.HasSufficientTokens {
		t.Fatal("snapshot must report insufficient tokens")
	}
	if view.TokensDeducted != 0 {
		t.Fatal("creation must not deduct tokens")
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 10 {
		t.Fatalf("balance mutated at creation: %d", bal)
	}
}

func TestCreate_DuplicateActiveMatchConflicts(t *testing.T) {
	f := newFixture(t, 100)

	f.create(t, customerActor, driverID)
	_, err := f.svc.Create(context.Background(), customerActor, ports.CreateConnectInput{
		RecipientID: driverID, LeadID: leadID, TripID: tripID,
	})
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want fault.ErrConflict", err)
	}
}

func TestCreate_ForeignLeadForbidden(t *testing.T) {
	f := newFixture(t, 100)
	l := f.leads.leads[leadID]
	l.CustomerID = "cust-other"
	f.leads.leads[leadID] = l

	_, err := f.svc.Create(context.Background(), customerActor, ports.CreateConnectInput{
		RecipientID: driverID, LeadID: leadID, TripID: tripID,
	})
	if !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("err = %v, want fault.ErrForbidden", err)
	}
}

func TestCreate_UnpricedDistanceBlocks(t *testing.T) {
	f := newFixture(t, 100)
	f.bands.bands = nil

	_, err := f.svc.Create(context.Background(), customerActor, ports.CreateConnectInput{
		RecipientID: driverID, LeadID: leadID, TripID: tripID,
	})
	if !errors.Is(err, fault.ErrNotPriced) {
		t.Fatalf("err = %v, want fault.ErrNotPriced", err)
	}
}

func TestCreate_SameRolePairingRejected(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.svc.Create(context.Background(), customerActor, ports.CreateConnectInput{
		RecipientID: customerID, LeadID: leadID, TripID: tripID,
	})
	if !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("self connect err = %v, want fault.ErrValidation", err)
	}
}

func TestRespond_Reject(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	got, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{
		Action: ports.ActionReject, RejectionReason: "route full",
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != connect.StatusRejected.String() {
		t.Fatalf("status = %s, want REJECTED", got.Status)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "route full" {
		t.Fatalf("rejection reason = %v", got.RejectionReason)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 100 {
		t.Fatalf("rejection must not touch the wallet, balance = %d", bal)
	}
}

func TestRespond_RecipientDriverAcceptSettles(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	got, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != connect.StatusAccepted.String() {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if got.TokensDeducted != 25 {
		t.Fatalf("tokensDeducted = %d, want 25", got.TokensDeducted)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 75 {
		t.Fatalf("balance = %d, want 75", bal)
	}
	if len(f.wallets.txns) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(f.wallets.txns))
	}
	txn := f.wallets.txns[0]
	if txn.Kind != wallet.KindDebit || txn.Amount != 25 || txn.DriverID != driverID {
		t.Fatalf("unexpected ledger entry: %+v", txn)
	}
}

func TestRespond_RecipientDriverInsufficientFailsHard(t *testing.T) {
	f := newFixture(t, 10)
	view := f.create(t, customerActor, driverID)

	_, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if !errors.Is(err, fault.ErrInsufficientTokens) {
		t.Fatalf("err = %v, want fault.ErrInsufficientTokens", err)
	}

	// the acceptance must not have stuck
	stored := f.connect.reqs[view.ID]
	if stored.Status != connect.StatusPending {
		t.Fatalf("status = %s, want PENDING unchanged", stored.Status)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 10 {
		t.Fatalf("balance = %d, want 10 unchanged", bal)
	}
	if len(f.wallets.txns) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(f.wallets.txns))
	}
}

func TestRespond_InitiatorDriverInsufficientParksOnHold(t *testing.T) {
	f := newFixture(t, 10)
	view := f.create(t, driverActor, customerID) // driver initiates

	got, err := f.svc.Respond(context.Background(), customerActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != connect.StatusHold.String() {
		t.Fatalf("status = %s, want HOLD", got.Status)
	}
	if got.TokensDeducted != 0 {
		t.Fatalf("tokensDeducted = %d, want 0", got.TokensDeducted)
	}
	if !got.RecipientAccepted {
		t.Fatal("recipient consent must be recorded on hold")
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 10 {
		t.Fatalf("balance = %d, want 10 unchanged", bal)
	}
	if len(f.wallets.txns) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(f.wallets.txns))
	}
}

func TestRespond_InitiatorDriverSufficientSettles(t *testing.T) {
	f := newFixture(t, 25) // exactly the cost
	view := f.create(t, driverActor, customerID)

	got, err := f.svc.Respond(context.Background(), customerActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != connect.StatusAccepted.String() {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}
}

func TestRespond_ZeroCostBandSettlesWithoutLedgerEntry(t *testing.T) {
	f := newFixture(t, 0)
	f.bands.bands[0].Cost = 0
	view := f.create(t, customerActor, driverID)

	got, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.Status != connect.StatusAccepted.String() {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if got.TokensDeducted != 0 {
		t.Fatalf("tokensDeducted = %d, want 0", got.TokensDeducted)
	}
	if len(f.wallets.txns) != 0 {
		t.Fatalf("zero-cost settlement must not append ledger entries, got %d", len(f.wallets.txns))
	}
}

func TestRespond_RepricesAtAcceptanceTime(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)
	if view.TokensRequired != 25 {
		t.Fatalf("creation price = %d, want 25", view.TokensRequired)
	}

	// admin reprices the band between creation and acceptance
	f.bands.bands[0].Cost = 40

	got, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got.TokensRequired != 40 || got.TokensDeducted != 40 {
		t.Fatalf("got required=%d deducted=%d, want 40/40", got.TokensRequired, got.TokensDeducted)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 60 {
		t.Fatalf("balance = %d, want 60", bal)
	}
}

func TestRespond_StrangerForbidden(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	stranger := user.Actor{ID: "drv-2", Role: user.RoleDriver}
	_, err := f.svc.Respond(context.Background(), stranger, view.ID, ports.RespondInput{Action: ports.ActionAccept})
	if !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("err = %v, want fault.ErrForbidden", err)
	}
}

func TestPromoteFromHold_SettlesAfterTopUp(t *testing.T) {
	f := newFixture(t, 10)
	view := f.create(t, driverActor, customerID)
	if _, err := f.svc.Respond(context.Background(), customerActor, view.ID, ports.RespondInput{Action: ports.ActionAccept}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	topUp, err := wallet.NewTransaction(driverID, wallet.KindCredit, 50, "manual top-up", "adm-1", nil)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	if _, err := f.wallets.Credit(context.Background(), topUp); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	got, err := f.svc.PromoteFromHold(context.Background(), driverActor, view.ID)
	if err != nil {
		t.Fatalf("PromoteFromHold: %v", err)
	}
	if got.Status != connect.StatusAccepted.String() {
		t.Fatalf("status = %s, want ACCEPTED", got.Status)
	}
	if got.TokensDeducted != 25 {
		t.Fatalf("tokensDeducted = %d, want 25", got.TokensDeducted)
	}
	if bal, _ := f.wallets.Balance(context.Background(), driverID); bal != 35 { // 10 + 50 - 25
		t.Fatalf("balance = %d, want 35", bal)
	}

	debits := 0
	for _, txn := range f.wallets.txns {
		if txn.Kind == wallet.KindDebit {
			debits++
		}
	}
	if debits != 1 {
		t.Fatalf("expected exactly one debit, got %d", debits)
	}
}

func TestPromoteFromHold_StillInsufficientStaysHeld(t *testing.T) {
	f := newFixture(t, 10)
	view := f.create(t, driverActor, customerID)
	if _, err := f.svc.Respond(context.Background(), customerActor, view.ID, ports.RespondInput{Action: ports.ActionAccept}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	_, err := f.svc.PromoteFromHold(context.Background(), customerActor, view.ID)
	if !errors.Is(err, fault.ErrInsufficientTokens) {
		t.Fatalf("err = %v, want fault.ErrInsufficientTokens", err)
	}
	if stored := f.connect.reqs[view.ID]; stored.Status != connect.StatusHold {
		t.Fatalf("status = %s, want HOLD unchanged", stored.Status)
	}
}

func TestPromoteFromHold_PendingRequestConflicts(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	_, err := f.svc.PromoteFromHold(context.Background(), customerActor, view.ID)
	if !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want fault.ErrConflict", err)
	}
}

func TestCounterAcceptFlow(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	if _, err := f.svc.CounterAccept(context.Background(), customerActor, view.ID); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("premature counter-accept err = %v, want fault.ErrConflict", err)
	}

	if _, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	got, err := f.svc.CounterAccept(context.Background(), customerActor, view.ID)
	if err != nil {
		t.Fatalf("CounterAccept: %v", err)
	}
	if !got.InitiatorAccepted || !got.ContactDetailsShared {
		t.Fatalf("counter-acceptance not recorded: %+v", got)
	}
}

func TestDisclosure_GatedOnStatus(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	// pending: hidden, not an error
	res, err := f.svc.GetDisclosure(context.Background(), customerActor, view.ID)
	if err != nil {
		t.Fatalf("GetDisclosure: %v", err)
	}
	if res.Show || res.Contact != nil {
		t.Fatalf("pending disclosure must be hidden: %+v", res)
	}

	// non-participant: forbidden
	stranger := user.Actor{ID: "cust-2", Role: user.RoleCustomer}
	if _, err := f.svc.GetDisclosure(context.Background(), stranger, view.ID); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("stranger err = %v, want fault.ErrForbidden", err)
	}

	if _, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	// accepted: each side sees the counterpart
	res, err = f.svc.GetDisclosure(context.Background(), customerActor, view.ID)
	if err != nil {
		t.Fatalf("GetDisclosure: %v", err)
	}
	if !res.Show || res.Contact == nil || res.Contact.Name != "Biju" {
		t.Fatalf("customer must see the driver's contact: %+v", res)
	}

	res, err = f.svc.GetDisclosure(context.Background(), driverActor, view.ID)
	if err != nil {
		t.Fatalf("GetDisclosure: %v", err)
	}
	if !res.Show || res.Contact == nil || res.Contact.Name != "Asha" {
		t.Fatalf("driver must see the customer's contact: %+v", res)
	}
}

func TestDelete_InitiatorPendingOnly(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	if err := f.svc.Delete(context.Background(), driverActor, view.ID); !errors.Is(err, fault.ErrForbidden) {
		t.Fatalf("recipient delete err = %v, want fault.ErrForbidden", err)
	}

	if err := f.svc.Delete(context.Background(), customerActor, view.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.connect.reqs[view.ID].IsActive {
		t.Fatal("request must be soft-deleted")
	}

	// a deleted request reads as not found
	if _, err := f.svc.GetDisclosure(context.Background(), customerActor, view.ID); !errors.Is(err, fault.ErrNotFound) {
		t.Fatalf("deleted read err = %v, want fault.ErrNotFound", err)
	}
}

func TestDelete_SettledConflicts(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)
	if _, err := f.svc.Respond(context.Background(), driverActor, view.ID, ports.RespondInput{Action: ports.ActionAccept}); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if err := f.svc.Delete(context.Background(), customerActor, view.ID); !errors.Is(err, fault.ErrConflict) {
		t.Fatalf("err = %v, want fault.ErrConflict", err)
	}
}

func TestListForActor(t *testing.T) {
	f := newFixture(t, 100)
	view := f.create(t, customerActor, driverID)

	page, err := f.svc.ListForActor(context.Background(), customerActor, "", ports.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}
	if page.Meta.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != view.ID {
		t.Fatalf("unexpected page: %+v", page)
	}

	page, err = f.svc.ListForActor(context.Background(), customerActor, "accepted", ports.Page{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListForActor filtered: %v", err)
	}
	if page.Meta.Total != 0 {
		t.Fatalf("expected no accepted requests, got %d", page.Meta.Total)
	}

	if _, err := f.svc.ListForActor(context.Background(), customerActor, "LIMBO", ports.Page{}); !errors.Is(err, fault.ErrValidation) {
		t.Fatalf("bad status filter err = %v, want fault.ErrValidation", err)
	}
}
