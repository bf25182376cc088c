// Package fault defines the error taxonomy shared across services. Services
// wrap these sentinels with context via fmt.Errorf("...: %w", ...), handlers
// map them back to HTTP statuses with errors.Is.
package fault

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed input: coordinates out of range,
	// missing required fields, bad role pairing.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced lead/trip/request/driver that does
	// not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks an actor without the role or ownership the
	// action requires.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a duplicate active match or a band overlap.
	ErrConflict = errors.New("conflict")

	// ErrInsufficientTokens marks a settlement that cannot proceed. The
	// caller may top up and retry.
	ErrInsufficientTokens = errors.New("insufficient tokens")

	// ErrNotPriced marks a distance no active band covers. Callers must
	// block the action rather than default the cost to zero.
	ErrNotPriced = errors.New("distance not priced")
)

// HTTPStatus maps a fault sentinel (possibly wrapped) to an HTTP status.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrNotPriced):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
