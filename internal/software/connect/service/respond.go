package service

import (
	"context"
	"errors"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/domain/wallet"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/ports"
)

// Respond records the recipient's accept or reject decision. An accept
// re-prices against the current lead distance and settles immediately when
// possible; whose side the driver is on decides whether an empty wallet
// hard-fails the acceptance or parks the request on HOLD.
func (service *connectService) Respond(ctx context.Context, actor user.Actor, requestID string, in ports.RespondInput) (ports.ConnectRequestView, error) {
	ctx = service.logger.WithConnectRequestID(ctx, requestID)

	var (
		updated *connect.Request
		event   string
		debited *wallet.Transaction
		balance int64
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		r, err := service.connectRepo.GetByID(txCtx, requestID)
		if err != nil {
			return err
		}

		switch in.Action {
		case ports.ActionReject:
			if err := r.Reject(actor.ID, in.RejectionReason); err != nil {
				return asFault(err)
			}
			event = contracts.ConnectRejected

		case ports.ActionAccept:
			if err := r.MarkRecipientAccepted(actor.ID); err != nil {
				return asFault(err)
			}

			// price at acceptance time, not creation time
			cost, err := service.repriceLead(txCtx, r.LeadID)
			if err != nil {
				return err
			}
			r.TokensRequired = cost

			driverID, hasDriver := r.DriverSideID()
			switch {
			case !hasDriver:
				// defensive: role pairing makes this unreachable
				if err := r.Settle(0); err != nil {
					return asFault(err)
				}
				event = contracts.ConnectAccepted

			case r.RecipientRole.IsDriver():
				// the accepting driver pays now or the acceptance fails
				txn, newBalance, err := service.debitForSettlement(txCtx, r, driverID, actor.ID)
				if err != nil {
					return err
				}
				if err := r.Settle(cost); err != nil {
					return asFault(err)
				}
				debited, balance = txn, newBalance
				event = contracts.ConnectAccepted

			default:
				// initiator is the driver: an empty wallet parks the
				// request instead of blocking the customer's acceptance
				txn, newBalance, err := service.debitForSettlement(txCtx, r, driverID, actor.ID)
				if errors.Is(err, wallet.ErrInsufficientTokens) {
					if err := r.PlaceOnHold(); err != nil {
						return asFault(err)
					}
					event = contracts.ConnectHeld
					break
				}
				if err != nil {
					return err
				}
				if err := r.Settle(cost); err != nil {
					return asFault(err)
				}
				debited, balance = txn, newBalance
				event = contracts.ConnectAccepted
			}

		default:
			return fmt.Errorf("%w: action must be accept or reject", fault.ErrValidation)
		}

		if err := service.connectRepo.Update(txCtx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_respond_failed", "Failed to respond to connect request", err, map[string]any{
			"responder_id": actor.ID,
			"action":       string(in.Action),
		})
		return ports.ConnectRequestView{}, asFault(err)
	}

	service.logger.Info(ctx, "connect_request_responded", fmt.Sprintf("Connect request %s is now %s", updated.ID, updated.Status), map[string]any{
		"responder_id":    actor.ID,
		"action":          string(in.Action),
		"tokens_deducted": updated.TokensDeducted,
	})

	if debited != nil {
		metrics.TokensDebited.Add(float64(debited.Amount))
		service.publishWalletTxn(ctx, debited, balance)
	}
	service.publishConnectEvent(ctx, event, updated)

	return toView(updated), nil
}

// debitForSettlement runs the atomic conditional debit for the paying driver.
// wallet.ErrInsufficientTokens passes through unmodified so callers can
// branch on it.
func (service *connectService) debitForSettlement(ctx context.Context, r *connect.Request, driverID, causedBy string) (*wallet.Transaction, int64, error) {
	// a zero-cost band settles without touching the ledger
	if r.TokensRequired == 0 {
		balance, err := service.walletRepo.Balance(ctx, driverID)
		if err != nil {
			return nil, 0, err
		}
		return nil, balance, nil
	}

	txn, err := wallet.NewTransaction(driverID, wallet.KindDebit, r.TokensRequired,
		"connect request settled", causedBy, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", fault.ErrValidation, err)
	}

	newBalance, err := service.walletRepo.DebitIfSufficient(ctx, txn)
	if err != nil {
		return nil, 0, err
	}
	return txn, newBalance, nil
}
