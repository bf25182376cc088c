package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/ports"
)

// PromoteFromHold retries settlement of a held request. Either participant
// may trigger it; the paying driver's wallet must cover the re-priced cost
// now or the request stays on HOLD.
func (service *connectService) PromoteFromHold(ctx context.Context, actor user.Actor, requestID string) (ports.ConnectRequestView, error) {
	ctx = service.logger.WithConnectRequestID(ctx, requestID)

	var (
		updated *connect.Request
		debited *wallet.Transaction
		balance int64
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.connectRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}
		if !r.Participant(actor.ID) {
			return fmt.Errorf("%w: %w", fault.ErrForbidden, connect.ErrNotParticipant)
		}
		if r.Status != connect.StatusHold {
			return fmt.Errorf("%w: only held requests can be promoted", fault.ErrConflict)
		}

		cost, err := service.repriceLead(txCtx, r.LeadID)
		if err != nil {
			return err
		}
		r.TokensRequired = cost

		driverID, hasDriver := r.DriverSideID()
		if !hasDriver {
			return fmt.Errorf("%w: held request has no driver side", fault.ErrConflict)
		}

		txn, newBalance, err := service.debitForSettlement(txCtx, r, driverID, actor.ID)
		if err != nil {
			// insufficient balance leaves the request on HOLD untouched
			return asFault(err)
		}
		if err := r.Settle(cost); err != nil {
			return asFault(err)
		}
		debited, balance = txn, newBalance

		if err := service.connectRepo.Update(txCtx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_promote_failed", "Failed to promote connect request from hold", err, map[string]any{
			"requester_id": actor.ID,
		})
		return ports.ConnectRequestView{}, err
	}

	service.logger.Info(ctx, "connect_request_promoted", fmt.Sprintf("Connect request %s promoted from hold", updated.ID), map[string]any{
		"requester_id":    actor.ID,
		"tokens_deducted": updated.TokensDeducted,
	})

	if debited != nil {
		metrics.TokensDebited.Add(float64(debited.Amount))
		service.publishWalletTxn(ctx, debited, balance)
	}
	service.publishConnectEvent(ctx, contracts.ConnectPromoted, updated)

	return toView(updated), nil
}
