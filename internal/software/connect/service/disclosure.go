package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/ports"
)

// GetDisclosure returns the counterpart's contact fields once the request is
// settled. An unsettled request yields a hidden result, not an error.
func (service *connectService) GetDisclosure(ctx context.Context, actor user.Actor, requestID string) (ports.DisclosureResult, error) {
	ctx = service.logger.WithConnectRequestID(ctx, requestID)

	var result ports.DisclosureResult

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.connectRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if !r.Participant(actor.ID) {
			return fmt.Errorf("%w: %w", fault.ErrForbidden, connect.ErrNotParticipant)
		}
		if !r.Disclosable() {
			result = ports.DisclosureResult{Show: false}
			return nil
		}

		counterpartID, err := r.CounterpartOf(actor.ID)
		if err != nil {
			return asFault(err)
		}
		counterpart, err := service.users.Resolve(txCtx, counterpartID)
		if err != nil {
			return err
		}

		contact := counterpart.Contact
		result = ports.DisclosureResult{Show: true, Contact: &contact}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_disclosure_failed", "Failed to read disclosure", err, map[string]any{
			"requester_id": actor.ID,
		})
		return ports.DisclosureResult{}, err
	}

	return result, nil
}
