package service

import (
	"context"
	"fmt"

	"freight-connect/internal/domain/connect"
	"freight-connect/internal/domain/fault"
	"freight-connect/internal/domain/pricing"
	"freight-connect/internal/domain/user"
	"freight-connect/internal/general/contracts"
	"freight-connect/internal/ports"
)

// Create starts a PENDING handshake: validates role pairing and
// cross-ownership, prices the match from the lead-token band table, and
// snapshots whether the paying driver could settle right now.
func (service *connectService) Create(ctx context.Context, actor user.Actor, in ports.CreateConnectInput) (ports.ConnectRequestView, error) {
	var created *connect.Request

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// resolve both profiles exactly once; the roles recorded here are
		// authoritative for the rest of the request's life
		initiator, err := service.users.Resolve(txCtx, actor.ID)
		if err != nil {
			return err
		}
		recipient, err := service.users.Resolve(txCtx, in.RecipientID)
		if err != nil {
			return err
		}

		r, err := connect.NewRequest(
			initiator.ID, recipient.ID,
			initiator.Role, recipient.Role,
			in.LeadID, in.TripID, in.Message,
		)
		if err != nil {
			return asFault(err)
		}

		// cross-ownership: the customer side must own the lead and the
		// driver side must own the trip, whichever direction initiated
		l, err := service.leadRepo.GetByID(txCtx, r.LeadID)
		if err != nil {
			return err
		}
		t, err := service.tripRepo.GetByID(txCtx, r.TripID)
		if err != nil {
			return err
		}

		driverID, _ := r.DriverSideID()
		customerID, err := r.CounterpartOf(driverID)
		if err != nil {
			return asFault(err)
		}
		if l.CustomerID != customerID {
			return fmt.Errorf("%w: lead is not owned by the customer side", fault.ErrForbidden)
		}
		if !t.OwnedBy(driverID) {
			return fmt.Errorf("%w: trip is not owned by the driver side", fault.ErrForbidden)
		}

		// price at creation time; a NotPriced distance blocks the request
		cost, err := service.bandRepo.Lookup(txCtx, pricing.TableLeadTokens, l.DistanceKm())
		if err != nil {
			return err
		}
		r.TokensRequired = cost

		// informational pre-check only; settlement re-checks at acceptance
		balance, err := service.walletRepo.Balance(txCtx, driverID)
		if err != nil {
			return err
		}
		r.HasSufficientTokens = balance >= cost

		if err := service.connectRepo.Create(txCtx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "connect_create_failed", "Failed to create connect request", err, map[string]any{
			"initiator_id": actor.ID,
			"recipient_id": in.RecipientID,
			"lead_id":      in.LeadID,
			"trip_id":      in.TripID,
		})
		return ports.ConnectRequestView{}, err
	}

	ctx = service.logger.WithConnectRequestID(ctx, created.ID)
	service.logger.Info(ctx, "connect_request_created", fmt.Sprintf("Connect request %s created", created.ID), map[string]any{
		"tokens_required":       created.TokensRequired,
		"has_sufficient_tokens": created.HasSufficientTokens,
	})

	service.publishConnectEvent(ctx, contracts.ConnectCreated, created)

	return toView(created), nil
}
