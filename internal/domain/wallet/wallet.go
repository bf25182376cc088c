package wallet

import (
	"errors"
	"strings"
	"time"
)

// Wallet is the one per-driver token ledger head: current balance plus an
// append-only transaction log kept alongside it.
type Wallet struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	DriverID string
	Balance  int64
}

// Kind is the direction of a ledger entry.
type Kind string

const (
	KindCredit Kind = "CREDIT"
	KindDebit  Kind = "DEBIT"
)

var ErrInvalidKind = errors.New("invalid transaction kind")

// ParseKind normalizes and validates a transaction kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if k.Valid() {
		return k, nil
	}
	return "", ErrInvalidKind
}

// Valid reports whether the kind is a known constant.
func (k Kind) Valid() bool {
	return k == KindCredit || k == KindDebit
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// Transaction is one immutable ledger entry. Rows are only ever appended.
type Transaction struct {
	ID        string
	CreatedAt time.Time

	DriverID string
	Kind     Kind
	Amount   int64

	// Reason is the audit string ("connect request settled", "manual
	// top-up", ...); CausedBy is the acting user.
	Reason   string
	CausedBy string

	// RelatedPlanID links a credit to a subscription plan purchase.
	RelatedPlanID *string
}

var (
	ErrDriverRequired     = errors.New("driver id is required")
	ErrAmountNotPositive  = errors.New("amount must be a positive integer")
	ErrReasonRequired     = errors.New("a reason is required for every ledger entry")
	ErrInsufficientTokens = errors.New("insufficient token balance")
)

// NewTransaction validates a ledger entry before it is appended.
func NewTransaction(driverID string, kind Kind, amount int64, reason, causedBy string, relatedPlanID *string) (*Transaction, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverRequired
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}
	if reason = strings.TrimSpace(reason); reason == "" {
		return nil, ErrReasonRequired
	}

	return &Transaction{
		CreatedAt:     time.Now().UTC(),
		DriverID:      driverID,
		Kind:          kind,
		Amount:        amount,
		Reason:        reason,
		CausedBy:      strings.TrimSpace(causedBy),
		RelatedPlanID: relatedPlanID,
	}, nil
}
