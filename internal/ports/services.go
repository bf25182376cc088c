package ports

import (
	"context"
	"time"

	"freight-connect/internal/domain/geo"
	"freight-connect/internal/domain/user"
)

// ----- Pagination -----

// Page is the caller-facing paging input; Normalize clamps it.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies defaults and an upper bound on page size.
func (p Page) Normalize(maxLimit int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// Offset converts the 1-based page to a row offset.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageMeta is the pagination envelope returned by every listing endpoint.
type PageMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPageMeta fills the envelope from a normalized page and a total count.
func NewPageMeta(p Page, total int) PageMeta {
	pages := total / p.Limit
	if total%p.Limit != 0 {
		pages++
	}
	return PageMeta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1 && total > 0,
	}
}

// ----- Connect service -----

// CreateConnectInput is the validated input to start a handshake.
type CreateConnectInput struct {
	RecipientID string
	LeadID      string
	TripID      string
	Message     string
}

// RespondAction is the recipient's decision.
type RespondAction string

const (
	ActionAccept RespondAction = "accept"
	ActionReject RespondAction = "reject"
)

// RespondInput is the validated input for the recipient's response.
type RespondInput struct {
	Action          RespondAction
	RejectionReason string
}

// ConnectRequestView is the wire shape of a connect request.
type ConnectRequestView struct {
	ID                   string     `json:"id"`
	InitiatorID          string     `json:"initiatorId"`
	RecipientID          string     `json:"recipientId"`
	LeadID               string     `json:"customerRequestId"`
	TripID               string     `json:"tripId"`
	Message              string     `json:"message,omitempty"`
	Status               string     `json:"status"`
	RecipientAccepted    bool       `json:"recipientAccepted"`
	InitiatorAccepted    bool       `json:"initiatorAccepted"`
	TokensRequired       int64      `json:"tokensRequired"`
	TokensDeducted       int64      `json:"tokensDeducted"`
	HasSufficientTokens  bool       `json:"hasSufficientTokens"`
	ContactDetailsShared bool       `json:"contactDetailsShared"`
	RejectionReason      *string    `json:"rejectionReason,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	RespondedAt          *time.Time `json:"respondedAt,omitempty"`
	SettledAt            *time.Time `json:"settledAt,omitempty"`
}

// ConnectRequestPage is one page of connect requests.
type ConnectRequestPage struct {
	Items []ConnectRequestView `json:"items"`
	Meta  PageMeta             `json:"meta"`
}

// DisclosureResult is the gated contact view. Show is false (and Contact
// nil) for any status other than accepted; that is not an error.
type DisclosureResult struct {
	Show    bool          `json:"show"`
	Contact *user.Contact `json:"contact"`
}

// ConnectService orchestrates a single match between an initiator and a
// recipient, priced by the distance bands and settled against the wallet.
type ConnectService interface {
	Create(ctx context.Context, actor user.Actor, in CreateConnectInput) (ConnectRequestView, error)
	Respond(ctx context.Context, actor user.Actor, requestID string, in RespondInput) (ConnectRequestView, error)
	CounterAccept(ctx context.Context, actor user.Actor, requestID string) (ConnectRequestView, error)
	PromoteFromHold(ctx context.Context, actor user.Actor, requestID string) (ConnectRequestView, error)
	GetDisclosure(ctx context.Context, actor user.Actor, requestID string) (DisclosureResult, error)
	Delete(ctx context.Context, actor user.Actor, requestID string) error
	ListForActor(ctx context.Context, actor user.Actor, status string, page Page) (ConnectRequestPage, error)
}

// ----- Listing service -----

// SearchMode names the two dual-point combinators consumed in this system.
type SearchMode string

const (
	// ModeRequireBoth intersects the pickup and dropoff predicates.
	ModeRequireBoth SearchMode = "requireBoth"
	// ModeRefineByDropoff requires proximity to pickup, then narrows the
	// fetched set by the dropoff predicate, preserving order.
	ModeRefineByDropoff SearchMode = "refineByDropoff"
)

// TripSearchInput drives the trip candidate listing.
type TripSearchInput struct {
	Pickup          *geo.Coord
	Dropoff         *geo.Coord
	CurrentLocation *geo.Coord
	RadiusMeters    float64
	Mode            SearchMode
	Page            Page
}

// LeadSearchInput drives the lead candidate listing.
type LeadSearchInput struct {
	Pickup       *geo.Coord
	Dropoff      *geo.Coord
	RadiusMeters float64
	Mode         SearchMode
	Page         Page
}

// TripView is the wire shape of a trip offer.
type TripView struct {
	ID               string     `json:"id"`
	CreatedBy        string     `json:"tripAddedBy"`
	AssignedDriverID string     `json:"assignedDriver"`
	Start            geo.Point  `json:"tripStartLocation"`
	Destination      geo.Point  `json:"tripDestination"`
	Via              []geo.Point `json:"viaPoints,omitempty"`
	Route            []geo.Coord `json:"routeGeoJSON,omitempty"`
	DistanceMeters   *float64   `json:"distanceMeters,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// LeadView is the wire shape of a lead.
type LeadView struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customerId"`
	Pickup         geo.Point `json:"pickupLocation"`
	Dropoff        geo.Point `json:"dropLocation"`
	DistanceMeters *float64  `json:"distanceMeters,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TripPage is one page of trip candidates.
type TripPage struct {
	Items []TripView `json:"items"`
	Meta  PageMeta   `json:"meta"`
}

// LeadPage is one page of lead candidates.
type LeadPage struct {
	Items []LeadView `json:"items"`
	Meta  PageMeta   `json:"meta"`
}

// CreateTripInput carries only the fields the matcher reads.
type CreateTripInput struct {
	Start          geo.Point
	Destination    geo.Point
	Via            []geo.Point
	Route          []geo.Coord
	DistanceMeters *float64
}

// CreateLeadInput carries only the fields the matcher reads.
type CreateLeadInput struct {
	Pickup         geo.Point
	Dropoff        geo.Point
	DistanceMeters *float64
}

// ListingService builds proximity predicates and runs candidate searches.
type ListingService interface {
	SearchTrips(ctx context.Context, in TripSearchInput) (TripPage, error)
	SearchLeads(ctx context.Context, in LeadSearchInput) (LeadPage, error)
	// NearbyTrips serves fast approximate start-point discovery from the
	// locator index, falling back to the store when it is unavailable.
	NearbyTrips(ctx context.Context, center geo.Coord, radiusMeters float64, limit int) ([]TripView, error)
	CreateTrip(ctx context.Context, actor user.Actor, in CreateTripInput) (TripView, error)
	CreateLead(ctx context.Context, actor user.Actor, in CreateLeadInput) (LeadView, error)
}

// ----- Wallet service -----

// WalletView is the wire shape of a wallet balance read.
type WalletView struct {
	DriverID string `json:"driverId"`
	Balance  int64  `json:"balance"`
}

// TransactionView is the wire shape of one ledger entry.
type TransactionView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CausedBy  string    `json:"causedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// TransactionPage is one page of ledger entries.
type TransactionPage struct {
	Items []TransactionView `json:"items"`
	Meta  PageMeta          `json:"meta"`
}

// AdjustInput is the admin manual credit/debit input. Reason is mandatory
// for the audit trail.
type AdjustInput struct {
	DriverID      string
	Amount        int64
	Reason        string
	RelatedPlanID *string
}

// WalletService exposes the token ledger.
type WalletService interface {
	Balance(ctx context.Context, actor user.Actor) (WalletView, error)
	Transactions(ctx context.Context, actor user.Actor, page Page) (TransactionPage, error)
	AdminCredit(ctx context.Context, actor user.Actor, in AdjustInput) (WalletView, error)
	AdminDebit(ctx context.Context, actor user.Actor, in AdjustInput) (WalletView, error)
}

// ----- Pricing service -----

// BandInput is the admin band create/update input.
type BandInput struct {
	ID     string
	Table  string
	FromKm float64
	ToKm   float64
	Cost   int64
}

// BandView is the wire shape of a distance band.
type BandView struct {
	ID     string  `json:"id"`
	Table  string  `json:"table"`
	FromKm float64 `json:"fromKm"`
	ToKm   float64 `json:"toKm"`
	Cost   int64   `json:"cost"`
}

// PricingService maintains the four distance-band tables.
type PricingService interface {
	UpsertBand(ctx context.Context, actor user.Actor, in BandInput) (BandView, error)
	ListBands(ctx context.Context, actor user.Actor, table string) ([]BandView, error)
	ArchiveBand(ctx context.Context, actor user.Actor, table, id string) error
}
