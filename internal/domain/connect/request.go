package connect

import (
	"errors"
	"strings"
	"time"

	"freight-connect/internal/domain/user"
)

// Request is the consent/settlement handshake between a lead and a trip
// offer. Exactly one side is a driver and the other a customer; the driver
// side pays tokens when the request settles.
type Request struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Actors. Roles are captured once at creation from the identity
	// collaborator and never re-derived afterwards.
	InitiatorID   string
	RecipientID   string
	InitiatorRole user.Role
	RecipientRole user.Role

	// Match references
	LeadID string
	TripID string

	Message string

	// Handshake state
	Status            Status
	RecipientAccepted bool
	InitiatorAccepted bool

	// Settlement
	TokensRequired      int64
	TokensDeducted      int64
	HasSufficientTokens bool // informational snapshot taken at creation

	// Disclosure audit flag. The read path gates on Status alone; this
	// records that both sides accepted.
	ContactDetailsShared bool

	RejectionReason *string

	IsActive bool

	// Lifecycle timestamps
	RespondedAt *time.Time
	SettledAt   *time.Time
}

var (
	ErrInitiatorRequired       = errors.New("initiator id is required")
	ErrRecipientRequired       = errors.New("recipient id is required")
	ErrSelfConnect             = errors.New("initiator and recipient must differ")
	ErrLeadRequired            = errors.New("lead id is required")
	ErrTripRequired            = errors.New("trip id is required")
	ErrRolePairing             = errors.New("exactly one side must be a driver and the other a customer")
	ErrInvalidStatusTransition = errors.New("invalid connect request status transition")
	ErrNotRecipient            = errors.New("only the recipient may respond")
	ErrNotInitiator            = errors.New("only the initiator may do this")
	ErrNotParticipant          = errors.New("actor is not part of this connect request")
	ErrRecipientNotAccepted    = errors.New("recipient has not accepted yet")
	ErrAlreadyCounterAccepted  = errors.New("initiator already accepted")
)

// NewRequest builds a PENDING request after checking identity and role
// pairing. Ownership of the lead and trip is the service's concern.
func NewRequest(initiatorID, recipientID string, initiatorRole, recipientRole user.Role, leadID, tripID, message string) (*Request, error) {
	initiatorID = strings.TrimSpace(initiatorID)
	recipientID = strings.TrimSpace(recipientID)
	if initiatorID == "" {
		return nil, ErrInitiatorRequired
	}
	if recipientID == "" {
		return nil, ErrRecipientRequired
	}
	if initiatorID == recipientID {
		return nil, ErrSelfConnect
	}
	if leadID = strings.TrimSpace(leadID); leadID == "" {
		return nil, ErrLeadRequired
	}
	if tripID = strings.TrimSpace(tripID); tripID == "" {
		return nil, ErrTripRequired
	}
	if !pairsDriverWithCustomer(initiatorRole, recipientRole) {
		return nil, ErrRolePairing
	}

	now := time.Now().UTC()
	return &Request{
		CreatedAt:     now,
		UpdatedAt:     now,
		InitiatorID:   initiatorID,
		RecipientID:   recipientID,
		InitiatorRole: initiatorRole,
		RecipientRole: recipientRole,
		LeadID:        leadID,
		TripID:        tripID,
		Message:       strings.TrimSpace(message),
		Status:        StatusPending,
		IsActive:      true,
	}, nil
}

// pairsDriverWithCustomer accepts the pairing in either direction.
func pairsDriverWithCustomer(a, b user.Role) bool {
	return (a.IsDriver() && b.IsCustomer()) || (a.IsCustomer() && b.IsDriver())
}

// DriverSideID returns the user who pays tokens for this match, and false
// when neither side is a driver (defensive; role pairing prevents it).
func (r *Request) DriverSideID() (string, bool) {
	switch {
	case r.InitiatorRole.IsDriver():
		return r.InitiatorID, true
	case r.RecipientRole.IsDriver():
		return r.RecipientID, true
	default:
		return "", false
	}
}

// CounterpartOf returns the other participant's id.
func (r *Request) CounterpartOf(actorID string) (string, error) {
	switch actorID {
	case r.InitiatorID:
		return r.RecipientID, nil
	case r.RecipientID:
		return r.InitiatorID, nil
	default:
		return "", ErrNotParticipant
	}
}

// Participant reports whether the actor is one of the two sides.
func (r *Request) Participant(actorID string) bool {
	return actorID == r.InitiatorID || actorID == r.RecipientID
}

// Reject moves PENDING -> REJECTED on behalf of the recipient.
func (r *Request) Reject(responderID, reason string) error {
	if responderID != r.RecipientID {
		return ErrNotRecipient
	}
	if !r.Status.CanTransitionTo(StatusRejected) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.RecipientAccepted = false
	r.RespondedAt = &now
	if reason = strings.TrimSpace(reason); reason != "" {
		r.RejectionReason = &reason
	}
	r.setStatus(StatusRejected)
	return nil
}

// MarkRecipientAccepted records the recipient's consent; settlement decides
// the resulting status separately.
func (r *Request) MarkRecipientAccepted(responderID string) error {
	if responderID != r.RecipientID {
		return ErrNotRecipient
	}
	if r.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.RecipientAccepted = true
	r.RespondedAt = &now
	r.touch()
	return nil
}

// Settle moves the request to ACCEPTED after a successful debit of
// tokensDeducted (zero in the defensive no-driver branch).
func (r *Request) Settle(tokensDeducted int64) error {
	if !r.Status.CanTransitionTo(StatusAccepted) {
		return ErrInvalidStatusTransition
	}
	now := time.Now().UTC()
	r.TokensDeducted = tokensDeducted
	r.SettledAt = &now
	r.setStatus(StatusAccepted)
	if r.InitiatorAccepted {
		r.ContactDetailsShared = true
	}
	return nil
}

// PlaceOnHold records consent without settlement: the paying driver lacked
// tokens and the initiator was the driver side.
func (r *Request) PlaceOnHold() error {
	if !r.Status.CanTransitionTo(StatusHold) {
		return ErrInvalidStatusTransition
	}
	r.setStatus(StatusHold)
	return nil
}

// CounterAccept records the initiator's acceptance once the recipient has
// accepted. The shared flag is set regardless of settlement status; the
// disclosure read path still gates on Status.
func (r *Request) CounterAccept(actorID string) error {
	if actorID != r.InitiatorID {
		return ErrNotInitiator
	}
	if !r.RecipientAccepted {
		return ErrRecipientNotAccepted
	}
	if r.InitiatorAccepted {
		return ErrAlreadyCounterAccepted
	}
	r.InitiatorAccepted = true
	r.ContactDetailsShared = true
	r.touch()
	return nil
}

// Disclosable reports whether contact details may be revealed.
func (r *Request) Disclosable() bool {
	return r.Status == StatusAccepted
}

// Deletable reports whether the initiator may still soft-delete the request.
func (r *Request) Deletable(actorID string) error {
	if actorID != r.InitiatorID {
		return ErrNotInitiator
	}
	if r.Status != StatusPending {
		return ErrInvalidStatusTransition
	}
	return nil
}

// ----- internal helpers -----

func (r *Request) setStatus(status Status) {
	r.Status = status
	r.touch()
}

func (r *Request) touch() {
	r.UpdatedAt = time.Now().UTC()
}
