package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/ports"
)

// CounterAccept records the initiator's acceptance after the recipient has
// already accepted. It never touches the wallet; settlement, if still
// outstanding, happens through PromoteFromHold.
func (service *connectService) CounterAccept(ctx context.Context, actor user.Actor, requestID string) (ports.ConnectRequestView, error) {
	ctx = service.logger.WithConnectRequestID(ctx, requestID)

	var updated *connect.Request

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.connectRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if err := r.CounterAccept(actor.ID); err != nil {
			return asFault(err)
		}
		if err := service.connectRepo.Update(txCtx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_counter_accept_failed", "Failed to counter-accept connect request", err, map[string]any{
			"initiator_id": actor.ID,
		})
		return ports.ConnectRequestView{}, err
	}

	service.logger.Info(ctx, "connect_request_counter_accepted", fmt.Sprintf("Connect request %s counter-accepted", updated.ID), nil)

	service.publishConnectEvent(ctx, contracts.ConnectCounterAccept, updated)

	return toView(updated), nil
}
