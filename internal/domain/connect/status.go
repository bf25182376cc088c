package connect

import (
	"errors"
	"strings"
)

// Status is a connect request status as stored in the `connect_requests` table.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"

	// StatusHold means "accepted in principle, payment not yet settled":
	// the recipient consented but the paying driver was out of tokens.
	StatusHold Status = "HOLD"
)

var ErrInvalidStatus = errors.New("invalid connect request status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusPending, StatusAccepted, StatusRejected, StatusHold:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
// HOLD is only ever promoted, never demoted back to PENDING.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusPending:
		return next == StatusAccepted || next == StatusRejected || next == StatusHold
	case StatusHold:
		return next == StatusAccepted
	case StatusAccepted, StatusRejected:
		return false
	default:
		return false
	}
}

// Terminal indicates if the settlement dimension is finished.
func (status Status) Terminal() bool {
	return status == StatusAccepted || status == StatusRejected
}
