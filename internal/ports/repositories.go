package ports

import (
	"context"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/lead"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/trip"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/geoquery"
)

// UnitOfWork manages transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserDirectory is the external identity collaborator: it resolves a user's
// role and contact fields exactly once per operation.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (*user.Profile, error)
}

// LeadRepository persists customer leads. Reads filter soft-deleted rows by
// default.
type LeadRepository interface {
	Create(ctx context.Context, l *lead.Lead) error
	GetByID(ctx context.Context, id string) (*lead.Lead, error)
	// Search returns one page of active leads matching the predicate plus
	// the total match count.
	Search(ctx context.Context, pred geoquery.Predicate, offset, limit int) ([]lead.Lead, int, error)
	Deactivate(ctx context.Context, id string) error
}

// TripRepository persists trip offers. Reads filter soft-deleted rows by
// default.
type TripRepository interface {
	Create(ctx context.Context, t *trip.Offer) error
	GetByID(ctx context.Context, id string) (*trip.Offer, error)
	Search(ctx context.Context, pred geoquery.Predicate, offset, limit int) ([]trip.Offer, int, error)
	// SearchAll returns up to cap active trips matching the predicate in
	// stable creation order; used by the refine-by-dropoff second pass.
	SearchAll(ctx context.Context, pred geoquery.Predicate, cap int) ([]trip.Offer, error)
	// GetByIDs preserves the order of ids; missing or inactive trips are
	// skipped.
	GetByIDs(ctx context.Context, ids []string) ([]trip.Offer, error)
	Deactivate(ctx context.Context, id string) error
}

// ConnectRequestRepository persists the consent handshake. Create must rely
// on a storage-level uniqueness constraint over the active
// (initiator, recipient, lead, trip) tuple, not only a pre-check.
type ConnectRequestRepository interface {
	Create(ctx context.Context, r *connect.Request) error
	GetByID(ctx context.Context, id string) (*connect.Request, error)
	Update(ctx context.Context, r *connect.Request) error
	SoftDelete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string, status *connect.Status, offset, limit int) ([]connect.Request, int, error)
}

// WalletRepository is the per-driver token ledger. DebitIfSufficient must be
// atomic: the balance check and the decrement commit as one unit so that
// concurrent debits cannot drive a balance negative.
type WalletRepository interface {
	GetOrCreate(ctx context.Context, driverID string) (*wallet.Wallet, error)
	Balance(ctx context.Context, driverID string) (int64, error)
	// Credit appends a CREDIT entry and returns the new balance.
	Credit(ctx context.Context, txn *wallet.Transaction) (int64, error)
	// DebitIfSufficient appends a DEBIT entry and returns the new
	// balance, or wallet.ErrInsufficientTokens without mutating anything.
	DebitIfSufficient(ctx context.Context, txn *wallet.Transaction) (int64, error)
	Transactions(ctx context.Context, driverID string, offset, limit int) ([]wallet.Transaction, int, error)
}

// BandRepository persists the four distance-band tables. Upsert must
// re-validate the no-overlap invariant against committed state at write time
// (serialized per table).
type BandRepository interface {
	Upsert(ctx context.Context, b *pricing.Band) error
	// Lookup returns the cost of the unique active band covering the
	// distance, or pricing/fault ErrNotPriced.
	Lookup(ctx context.Context, table pricing.Table, distanceKm float64) (int64, error)
	List(ctx context.Context, table pricing.Table) ([]pricing.Band, error)
	Archive(ctx context.Context, table pricing.Table, id string) error
}

// TripLocator is an optional fast-path index of active trip start points
// (Redis GEO). Implementations are best-effort; callers fall back to the
// store predicate when the locator is unavailable.
type TripLocator interface {
	Add(ctx context.Context, tripID string, lon, lat float64) error
	Remove(ctx context.Context, tripID string) error
	Nearby(ctx context.Context, lon, lat, radiusMeters float64, limit int) ([]string, error)
}

// EventPublisher sends lifecycle messages to the broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
